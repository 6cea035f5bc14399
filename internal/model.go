package internal

import (
	"time"
)

const (
	DefaultMaxPlayers = 8
	MinPlayersToStart = 2

	DefaultRoundCount         = 3
	DefaultPromptTimeLimit    = 90
	DefaultSelectionTimeLimit = 45
	DefaultGuessingTimeLimit  = 60
	DefaultResultsTimeLimit   = 15
	DefaultImageCount         = 4

	// RoomTTL bounds every persisted room key. A room that sees no writes
	// for this long is gone.
	RoomTTL = 24 * time.Hour

	MinPromptLength = 10
	MaxPromptLength = 200
	MinGuessLength  = 3
	MaxGuessLength  = 200
)

type RoomStatus string

const (
	RoomLobby    RoomStatus = "lobby"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// GamePhase is shared between Game.Status and Round.Status. While a round is
// current its status mirrors the game's; PhaseRoundEnd and PhaseGameEnd only
// ever appear on the game, PhaseCompleted only on a finished round.
type GamePhase string

const (
	PhasePromptSubmit  GamePhase = "prompt_submit"
	PhaseImageGenerate GamePhase = "image_generate"
	PhaseImageSelect   GamePhase = "image_select"
	PhaseRevealGuess   GamePhase = "reveal_guess"
	PhaseScoring       GamePhase = "scoring"
	PhaseRevealResults GamePhase = "reveal_results"
	PhaseRoundEnd      GamePhase = "round_end"
	PhaseGameEnd       GamePhase = "game_end"
	PhaseCompleted     GamePhase = "completed"
)

type PromptStatus string

const (
	PromptPending    PromptStatus = "pending"
	PromptGenerating PromptStatus = "generating"
	PromptReady      PromptStatus = "ready"
	PromptFailed     PromptStatus = "failed"
	PromptRejected   PromptStatus = "rejected"
)

type ImageStatus string

const (
	ImageQueued     ImageStatus = "queued"
	ImageGenerating ImageStatus = "generating"
	ImageComplete   ImageStatus = "complete"
	ImageFailed     ImageStatus = "failed"
)

type ResultDirection string

const (
	ResultNext     ResultDirection = "next"
	ResultPrevious ResultDirection = "previous"
)

// Settings are advertised to clients; the server does not enforce the phase
// time limits. All durations are seconds.
type Settings struct {
	RoundCount         int `json:"roundCount"`
	PromptTimeLimit    int `json:"promptTimeLimit"`
	SelectionTimeLimit int `json:"selectionTimeLimit"`
	GuessingTimeLimit  int `json:"guessingTimeLimit"`
	ResultsTimeLimit   int `json:"resultsTimeLimit"`
	ImageCount         int `json:"imageCount"`
}

func DefaultSettings() Settings {
	return Settings{
		RoundCount:         DefaultRoundCount,
		PromptTimeLimit:    DefaultPromptTimeLimit,
		SelectionTimeLimit: DefaultSelectionTimeLimit,
		GuessingTimeLimit:  DefaultGuessingTimeLimit,
		ResultsTimeLimit:   DefaultResultsTimeLimit,
		ImageCount:         DefaultImageCount,
	}
}

// ApplyDefaults fills any unset field so partially specified settings from
// room creation are always complete.
func (s *Settings) ApplyDefaults() {
	def := DefaultSettings()
	if s.RoundCount <= 0 {
		s.RoundCount = def.RoundCount
	}
	if s.PromptTimeLimit <= 0 {
		s.PromptTimeLimit = def.PromptTimeLimit
	}
	if s.SelectionTimeLimit <= 0 {
		s.SelectionTimeLimit = def.SelectionTimeLimit
	}
	if s.GuessingTimeLimit <= 0 {
		s.GuessingTimeLimit = def.GuessingTimeLimit
	}
	if s.ResultsTimeLimit <= 0 {
		s.ResultsTimeLimit = def.ResultsTimeLimit
	}
	if s.ImageCount <= 0 {
		s.ImageCount = def.ImageCount
	}
}

type Room struct {
	Id        string     `json:"id"`
	Code      string     `json:"code"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
	Status    RoomStatus `json:"status"`
	HostId    string     `json:"hostId"`

	// Players is keyed by player id; PlayerOrder preserves join order since
	// Go maps don't.
	Players     map[string]*Player `json:"players"`
	PlayerOrder []string           `json:"playerOrder"`

	MaxPlayers int      `json:"maxPlayers"`
	Settings   Settings `json:"settings"`
	Game       *Game    `json:"game,omitempty"`
}

type Game struct {
	Id           string       `json:"id"`
	RoomId       string       `json:"roomId"`
	Status       GamePhase    `json:"status"`
	CurrentRound int          `json:"currentRound"`
	Rounds       []*Round     `json:"rounds"`
	Leaderboard  *Leaderboard `json:"leaderboard"`
	CreatedAt    time.Time    `json:"createdAt"`
	StartedAt    *time.Time   `json:"startedAt,omitempty"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
}

type Round struct {
	Id          string     `json:"id"`
	RoundNumber int        `json:"roundNumber"`
	Status      GamePhase  `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`

	// Cursors over the selected images: reveal during guessing, result
	// during the results review. Both follow SelectionOrder.
	CurrentRevealIndex int `json:"currentRevealIndex"`
	CurrentResultIndex int `json:"currentResultIndex"`

	Prompts        map[string]*PromptSubmission `json:"prompts"`
	Selections     map[string]*ImageSelection   `json:"selections"`
	SelectionOrder []string                     `json:"selectionOrder"`
	Guesses        GuessBoard                   `json:"guesses"`
	BonusPoints    map[string]int               `json:"bonusPoints"`
	Scores         map[string]int               `json:"scores"`
}

type PromptSubmission struct {
	PlayerId    string            `json:"playerId"`
	Prompt      string            `json:"prompt"`
	SubmittedAt time.Time         `json:"submittedAt"`
	Images      []*GeneratedImage `json:"images"`
	Status      PromptStatus      `json:"status"`
}

type ImageMetadata struct {
	Model          string `json:"model"`
	RevisedPrompt  string `json:"revisedPrompt,omitempty"`
	GenerationTime int64  `json:"generationTime"` // milliseconds
}

type GeneratedImage struct {
	Id              string        `json:"id"`
	PromptId        string        `json:"promptId"` // submitter's player id
	PlayerId        string        `json:"playerId"`
	ImageUrl        string        `json:"imageUrl"`
	ThumbnailUrl    string        `json:"thumbnailUrl"`
	Provider        string        `json:"provider"`
	ProviderImageId string        `json:"providerImageId"`
	Status          ImageStatus   `json:"status"`
	GeneratedAt     time.Time     `json:"generatedAt"`
	Metadata        ImageMetadata `json:"metadata"`
}

type ImageSelection struct {
	PlayerId   string    `json:"playerId"`
	ImageId    string    `json:"imageId"`
	SelectedAt time.Time `json:"selectedAt"`
}

type Guess struct {
	Id          string    `json:"id"`
	ImageId     string    `json:"imageId"`
	PlayerId    string    `json:"playerId"`
	GuessText   string    `json:"guessText"`
	SubmittedAt time.Time `json:"submittedAt"`
	Score       *int      `json:"score,omitempty"` // filled during scoring
}

type PlayerScore struct {
	PlayerId    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	TotalScore  int    `json:"totalScore"`
	RoundScores []int  `json:"roundScores"`
	GuessWins   int    `json:"guessWins"`
	PromptPicks int    `json:"promptPicks"`
}

type Leaderboard struct {
	Scores map[string]*PlayerScore `json:"scores"`
	// Rankings orders player ids by total score desc, ties broken by
	// earliest join.
	Rankings []string `json:"rankings"`
}
