package internal

// Message is the envelope for every frame on the session channel.
type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Client -> server commands.
const (
	CmdJoinRoom       = "room:join"
	CmdPlayerReady    = "player:ready"
	CmdStartGame      = "game:start"
	CmdSubmitPrompt   = "game:submit_prompt"
	CmdResubmitPrompt = "game:resubmit_prompt"
	CmdSelectImage    = "game:select_image"
	CmdSubmitGuess    = "game:submit_guess"
	CmdNavigateResult = "game:navigate_result"
	CmdCompleteReveal = "game:complete_reveal"
	CmdNextRound      = "game:next_round"
)

// Server -> client notifications.
const (
	EvtRoomUpdate         = "room:update"
	EvtPlayerJoined       = "player:joined"
	EvtPlayerLeft         = "player:left"
	EvtPlayerReadyChanged = "player:ready_changed"
	EvtGameStarted        = "game:started"
	EvtPromptSubmitted    = "game:prompt_submitted"
	EvtPromptRejected     = "game:prompt_rejected"
	EvtPhaseTransition    = "game:phase_transition"
	EvtImageProgress      = "game:image_progress"
	EvtError              = "error"
)

// Leave reasons on player:left.
const (
	LeftDisconnect = "disconnect"
	LeftKicked     = "kicked"
	LeftLeft       = "left"
)

type JoinRoomData struct {
	RoomId   string `json:"roomId"`
	PlayerId string `json:"playerId"`
}

type PlayerReadyData struct {
	IsReady bool `json:"isReady"`
}

type SubmitPromptData struct {
	Prompt string `json:"prompt"`
}

type SelectImageData struct {
	ImageId string `json:"imageId"`
}

type SubmitGuessData struct {
	ImageId string `json:"imageId"`
	Guess   string `json:"guess"`
}

type NavigateResultData struct {
	Direction ResultDirection `json:"direction"`
}

type RoomUpdateData struct {
	Room *Room `json:"room"`
}

type PlayerJoinedData struct {
	Player      *Player `json:"player"`
	PlayerCount int     `json:"playerCount"`
}

type PlayerLeftData struct {
	PlayerId    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Reason      string `json:"reason"`
	NewHostId   string `json:"newHostId,omitempty"`
}

type PlayerReadyChangedData struct {
	PlayerId string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

type GameStartedData struct {
	Game *Game `json:"game"`
}

type PromptSubmittedData struct {
	PlayerId     string `json:"playerId"`
	AllSubmitted bool   `json:"allSubmitted"`
}

type PromptRejectedData struct {
	PlayerId string `json:"playerId"`
	Reason   string `json:"reason"`
}

type PhaseTransitionData struct {
	Game  *Game     `json:"game"`
	Phase GamePhase `json:"phase"`
}

type ImageProgressData struct {
	Game *Game `json:"game"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}
