package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/imagegen"
	"github.com/promptguessr/backend/internal/scoring"
	"github.com/promptguessr/backend/internal/utils"
)

// transition moves the current round and the game to phase together; the
// round status mirrors the game's while it is current.
func transition(room *internal.Room, phase internal.GamePhase) {
	room.Game.Status = phase
	if round := room.CurrentRound(); round != nil {
		round.Status = phase
	}
}

func newRound(number int) *internal.Round {
	return &internal.Round{
		Id:             utils.NewID(),
		RoundNumber:    number,
		Status:         internal.PhasePromptSubmit,
		StartedAt:      time.Now().UTC(),
		Prompts:        make(map[string]*internal.PromptSubmission),
		Selections:     make(map[string]*internal.ImageSelection),
		SelectionOrder: []string{},
		Guesses:        internal.GuessBoard{},
		BonusPoints:    make(map[string]int),
		Scores:         make(map[string]int),
	}
}

// StartGame moves a lobby into round one. Host only, needs at least two
// players, all ready.
func (s *Service) StartGame(ctx context.Context, roomId, playerId string) (*internal.Room, error) {
	room, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		caller := r.Player(playerId)
		if caller == nil {
			return internal.ErrPlayerNotInRoom
		}
		if !caller.IsHost {
			return internal.ErrNotHost
		}
		if r.Status != internal.RoomLobby {
			return fmt.Errorf("%w: game can only start from the lobby", internal.ErrInvalidPhase)
		}
		if len(r.Players) < internal.MinPlayersToStart {
			return internal.ErrNotEnoughPlayers
		}
		if !r.AllPlayersReady() {
			return internal.ErrPlayersNotReady
		}

		now := time.Now().UTC()
		leaderboard := &internal.Leaderboard{
			Scores:   make(map[string]*internal.PlayerScore, len(r.Players)),
			Rankings: make([]string, 0, len(r.Players)),
		}
		for _, id := range r.PlayerOrder {
			p := r.Players[id]
			leaderboard.Scores[id] = &internal.PlayerScore{
				PlayerId:    id,
				DisplayName: p.DisplayName,
				RoundScores: []int{},
			}
			leaderboard.Rankings = append(leaderboard.Rankings, id)
		}

		r.Status = internal.RoomPlaying
		r.Game = &internal.Game{
			Id:           utils.NewID(),
			RoomId:       r.Id,
			Status:       internal.PhasePromptSubmit,
			CurrentRound: 1,
			Rounds:       []*internal.Round{newRound(1)},
			Leaderboard:  leaderboard,
			CreatedAt:    now,
			StartedAt:    &now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("game started", "room", roomId, "players", len(room.Players))
	return room, nil
}

// SubmitPrompt records a player's prompt for the current round. When the
// last player submits, the round moves to image generation.
func (s *Service) SubmitPrompt(ctx context.Context, roomId, playerId, text string) (*internal.Room, bool, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < internal.MinPromptLength || n > internal.MaxPromptLength {
		return nil, false, fmt.Errorf("%w: prompt must be %d-%d characters",
			internal.ErrInvalidInput, internal.MinPromptLength, internal.MaxPromptLength)
	}

	var allSubmitted bool
	room, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		if r.Player(playerId) == nil {
			return internal.ErrPlayerNotInRoom
		}
		round := r.CurrentRound()
		if round == nil || round.Status != internal.PhasePromptSubmit {
			return fmt.Errorf("%w: prompts are not being accepted", internal.ErrInvalidPhase)
		}
		if _, exists := round.Prompts[playerId]; exists {
			return fmt.Errorf("%w: prompt already submitted", internal.ErrInvalidPhase)
		}

		round.Prompts[playerId] = &internal.PromptSubmission{
			PlayerId:    playerId,
			Prompt:      text,
			SubmittedAt: time.Now().UTC(),
			Images:      []*internal.GeneratedImage{},
			Status:      internal.PromptPending,
		}

		if len(round.Prompts) == len(r.Players) {
			allSubmitted = true
			transition(r, internal.PhaseImageGenerate)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return room, allSubmitted, nil
}

// ResubmitPrompt replaces a rejected prompt and regenerates images for it
// while the rest of the round waits in image_generate. The generator call
// happens outside the critical section; its result re-enters to record.
func (s *Service) ResubmitPrompt(ctx context.Context, roomId, playerId, text string) (*internal.Room, bool, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < internal.MinPromptLength || n > internal.MaxPromptLength {
		return nil, false, fmt.Errorf("%w: prompt must be %d-%d characters",
			internal.ErrInvalidInput, internal.MinPromptLength, internal.MaxPromptLength)
	}

	var imageCount int
	var roundNumber int
	_, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		round := r.CurrentRound()
		if round == nil || round.Status != internal.PhaseImageGenerate {
			return fmt.Errorf("%w: round is not generating images", internal.ErrInvalidPhase)
		}
		sub := round.Prompts[playerId]
		if sub == nil {
			return internal.ErrPlayerNotInRoom
		}
		if sub.Status != internal.PromptRejected {
			return fmt.Errorf("%w: only rejected prompts can be resubmitted", internal.ErrInvalidPhase)
		}

		sub.Prompt = text
		sub.SubmittedAt = time.Now().UTC()
		sub.Images = []*internal.GeneratedImage{}
		sub.Status = internal.PromptGenerating

		imageCount = r.Settings.ImageCount
		roundNumber = round.RoundNumber
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	// Generation runs on its own deadline, detached from the session request
	// that triggered it, so the result gets recorded even if the caller's
	// context dies first.
	genCtx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	images, genErr := s.gen.Generate(genCtx, text, imageCount, playerId)
	outcome, recErr := s.recordGenerationResult(genCtx, roomId, roundNumber, playerId, images, genErr)
	if recErr != nil {
		return nil, false, recErr
	}
	if genErr != nil {
		// Re-raise so the gateway can notify the submitter. The round may
		// still have settled and moved on without this player's images.
		return outcome.Room, outcome.Transitioned, genErr
	}
	return outcome.Room, outcome.Transitioned, nil
}

// SelectImage stores which of their own images a player puts up for the
// reveal. When everyone has selected, guessing begins.
func (s *Service) SelectImage(ctx context.Context, roomId, playerId, imageId string) (*internal.Room, bool, error) {
	var allSelected bool
	room, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		if r.Player(playerId) == nil {
			return internal.ErrPlayerNotInRoom
		}
		round := r.CurrentRound()
		if round == nil || round.Status != internal.PhaseImageSelect {
			return fmt.Errorf("%w: images are not being selected", internal.ErrInvalidPhase)
		}

		sub := round.Prompts[playerId]
		if sub == nil || !ownsImage(sub, imageId) {
			return fmt.Errorf("%w: image does not belong to player", internal.ErrInvalidInput)
		}

		if _, already := round.Selections[playerId]; !already {
			round.SelectionOrder = append(round.SelectionOrder, playerId)
		}
		round.Selections[playerId] = &internal.ImageSelection{
			PlayerId:   playerId,
			ImageId:    imageId,
			SelectedAt: time.Now().UTC(),
		}

		if len(round.Selections) == len(r.Players) {
			allSelected = true
			round.CurrentRevealIndex = 0
			transition(r, internal.PhaseRevealGuess)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return room, allSelected, nil
}

func ownsImage(sub *internal.PromptSubmission, imageId string) bool {
	for _, img := range sub.Images {
		if img.Id == imageId {
			return true
		}
	}
	return false
}

// SubmitGuess records a guess at the image under the reveal cursor. The
// last expected guess advances the cursor, or moves the round to scoring
// when every selection has been revealed.
func (s *Service) SubmitGuess(ctx context.Context, roomId, playerId, imageId, guessText string) (*internal.Room, bool, error) {
	guessText = strings.TrimSpace(guessText)
	if n := utf8.RuneCountInString(guessText); n < internal.MinGuessLength || n > internal.MaxGuessLength {
		return nil, false, fmt.Errorf("%w: guess must be %d-%d characters",
			internal.ErrInvalidInput, internal.MinGuessLength, internal.MaxGuessLength)
	}

	var allGuessed bool
	room, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		if r.Player(playerId) == nil {
			return internal.ErrPlayerNotInRoom
		}
		round := r.CurrentRound()
		if round == nil || round.Status != internal.PhaseRevealGuess {
			return fmt.Errorf("%w: guesses are not being accepted", internal.ErrInvalidPhase)
		}
		if imageId != round.RevealImageId() {
			return fmt.Errorf("%w: image is not under reveal", internal.ErrInvalidInput)
		}

		img := round.ImageById(imageId)
		if img != nil && img.PlayerId == playerId {
			return fmt.Errorf("%w: cannot guess your own prompt", internal.ErrInvalidInput)
		}
		if existing := round.Guesses.ForImage(imageId); existing != nil {
			if _, dup := existing[playerId]; dup {
				return fmt.Errorf("%w: already guessed this image", internal.ErrInvalidInput)
			}
		}

		round.Guesses.Put(imageId, &internal.Guess{
			Id:          utils.NewID(),
			ImageId:     imageId,
			PlayerId:    playerId,
			GuessText:   guessText,
			SubmittedAt: time.Now().UTC(),
		})

		expected := len(r.Players)
		if img != nil {
			if _, present := r.Players[img.PlayerId]; present {
				expected-- // the submitter never guesses their own image
			}
		}
		if len(round.Guesses.ForImage(imageId)) >= expected {
			allGuessed = true
			if round.CurrentRevealIndex < round.TotalSelections()-1 {
				round.CurrentRevealIndex++
			} else {
				transition(r, internal.PhaseScoring)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return room, allGuessed, nil
}

// ScoreRound scores every guessed image, accumulates round and total
// points, rebuilds the leaderboard and moves to reveal_results.
func (s *Service) ScoreRound(ctx context.Context, roomId string) (*internal.Room, error) {
	room, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		round := r.CurrentRound()
		if round == nil || round.Status != internal.PhaseScoring {
			return fmt.Errorf("%w: round is not being scored", internal.ErrInvalidPhase)
		}

		for _, creatorId := range round.SelectionOrder {
			sel := round.Selections[creatorId]
			if sel == nil {
				continue
			}
			guesses := round.Guesses.ForImage(sel.ImageId)
			if len(guesses) == 0 {
				continue
			}
			sub := round.Prompts[creatorId]
			if sub == nil {
				continue
			}

			imageScores := make([]scoring.ImageScore, 0, len(guesses))
			best := -1
			for _, g := range guesses {
				score := scoring.Similarity(sub.Prompt, g.GuessText)
				g.Score = &score
				imageScores = append(imageScores, scoring.ImageScore{PlayerId: g.PlayerId, Score: score})
				if score > best {
					best = score
				}
			}

			points, stumper := scoring.AwardImagePoints(imageScores, creatorId)
			for pid, pts := range points {
				round.Scores[pid] += pts
			}
			if stumper {
				round.BonusPoints[sel.ImageId] = scoring.StumperBonus
				if ps := r.Game.Leaderboard.Scores[creatorId]; ps != nil {
					ps.PromptPicks++
				}
			}
			for _, g := range guesses {
				if g.Score != nil && *g.Score == best {
					if ps := r.Game.Leaderboard.Scores[g.PlayerId]; ps != nil {
						ps.GuessWins++
					}
				}
			}
		}

		updateLeaderboard(r, round)
		round.CurrentResultIndex = 0
		transition(r, internal.PhaseRevealResults)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("round scored", "room", roomId, "round", room.Game.CurrentRound)
	return room, nil
}

func updateLeaderboard(r *internal.Room, round *internal.Round) {
	lb := r.Game.Leaderboard
	for _, id := range r.PlayerOrder {
		ps := lb.Scores[id]
		if ps == nil {
			ps = &internal.PlayerScore{
				PlayerId:    id,
				DisplayName: r.Players[id].DisplayName,
				RoundScores: []int{},
			}
			lb.Scores[id] = ps
		}
		delta := round.Scores[id]
		ps.TotalScore += delta
		ps.RoundScores = append(ps.RoundScores, delta)
	}

	rankings := append([]string(nil), r.PlayerOrder...)
	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := lb.Scores[rankings[i]], lb.Scores[rankings[j]]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		pa, pb := r.Players[rankings[i]], r.Players[rankings[j]]
		return pa.JoinedAt.Before(pb.JoinedAt)
	})
	lb.Rankings = rankings
}

// NavigateResult moves the shared results cursor; any player may drive it.
func (s *Service) NavigateResult(ctx context.Context, roomId string, direction internal.ResultDirection) (*internal.Room, error) {
	return s.withRoom(ctx, roomId, func(r *internal.Room) error {
		round := r.CurrentRound()
		if round == nil || r.Game.Status != internal.PhaseRevealResults {
			return fmt.Errorf("%w: results are not being shown", internal.ErrInvalidPhase)
		}
		switch direction {
		case internal.ResultNext:
			if round.CurrentResultIndex < round.TotalSelections()-1 {
				round.CurrentResultIndex++
			}
		case internal.ResultPrevious:
			if round.CurrentResultIndex > 0 {
				round.CurrentResultIndex--
			}
		default:
			return fmt.Errorf("%w: unknown direction %q", internal.ErrInvalidInput, direction)
		}
		return nil
	})
}

// CompleteReveal closes the results view. Outside reveal_results it is a
// no-op so a double-clicked "continue" cannot advance twice.
func (s *Service) CompleteReveal(ctx context.Context, roomId string) (*internal.Room, bool, error) {
	var changed bool
	room, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		round := r.CurrentRound()
		if round == nil || r.Game.Status != internal.PhaseRevealResults {
			return nil
		}
		changed = true
		now := time.Now().UTC()
		round.Status = internal.PhaseCompleted
		round.FinishedAt = &now

		if r.Game.CurrentRound >= r.Settings.RoundCount {
			r.Game.Status = internal.PhaseGameEnd
			r.Game.FinishedAt = &now
			r.Status = internal.RoomFinished
		} else {
			r.Game.Status = internal.PhaseRoundEnd
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return room, changed, nil
}

// StartNextRound appends a fresh round; host only, from round_end.
func (s *Service) StartNextRound(ctx context.Context, roomId, playerId string) (*internal.Room, error) {
	return s.withRoom(ctx, roomId, func(r *internal.Room) error {
		caller := r.Player(playerId)
		if caller == nil {
			return internal.ErrPlayerNotInRoom
		}
		if !caller.IsHost {
			return internal.ErrNotHost
		}
		if r.Game == nil || r.Game.Status != internal.PhaseRoundEnd {
			return fmt.Errorf("%w: round is not over", internal.ErrInvalidPhase)
		}
		if r.Game.CurrentRound >= r.Settings.RoundCount {
			return fmt.Errorf("%w: no rounds left", internal.ErrInvalidPhase)
		}

		r.Game.CurrentRound++
		r.Game.Rounds = append(r.Game.Rounds, newRound(r.Game.CurrentRound))
		r.Game.Status = internal.PhasePromptSubmit
		return nil
	})
}

// generationOutcome reports what recording one generator result did to the
// round.
type generationOutcome struct {
	Room *internal.Room
	// Stale: the result arrived after its round ended and was dropped.
	Stale bool
	// AllSettled: every submission of the round reached a terminal state.
	AllSettled bool
	// Transitioned: the round moved on to image_select.
	Transitioned      bool
	RejectedPlayerIds []string
	AnyFailed         bool
}

// markPromptGenerating flips a pending submission to generating. Returns
// false when the round has moved on.
func (s *Service) markPromptGenerating(ctx context.Context, roomId string, roundNumber int, playerId string) (bool, error) {
	started := false
	_, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		round := currentGeneratingRound(r, roundNumber)
		if round == nil {
			return nil
		}
		if sub := round.Prompts[playerId]; sub != nil && sub.Status == internal.PromptPending {
			sub.Status = internal.PromptGenerating
			started = true
		}
		return nil
	})
	return started, err
}

// recordGenerationResult applies one generator outcome inside the room
// critical section. Late results for a finished round are ignored.
func (s *Service) recordGenerationResult(ctx context.Context, roomId string, roundNumber int, playerId string, images []*internal.GeneratedImage, genErr error) (generationOutcome, error) {
	outcome := generationOutcome{Stale: true}
	room, err := s.withRoom(ctx, roomId, func(r *internal.Room) error {
		round := currentGeneratingRound(r, roundNumber)
		if round == nil {
			return nil
		}
		sub := round.Prompts[playerId]
		if sub == nil {
			return nil
		}
		outcome.Stale = false

		switch {
		case genErr == nil:
			for _, img := range images {
				img.PromptId = playerId
			}
			sub.Images = images
			sub.Status = internal.PromptReady
		case errors.Is(genErr, imagegen.ErrContentPolicy):
			sub.Status = internal.PromptRejected
		default:
			sub.Status = internal.PromptFailed
		}

		if !round.AllPromptsSettled() {
			return nil
		}
		outcome.AllSettled = true
		outcome.RejectedPlayerIds = round.RejectedPlayerIds()
		for _, p := range round.Prompts {
			if p.Status == internal.PromptFailed {
				outcome.AnyFailed = true
			}
		}

		// Rejected prompts hold the round open for resubmission; failed
		// ones are tolerated and the round degrades without their images.
		if len(outcome.RejectedPlayerIds) == 0 {
			outcome.Transitioned = true
			transition(r, internal.PhaseImageSelect)
			if outcome.AnyFailed {
				s.log.Warnw("round degraded: proceeding without failed submissions",
					"room", roomId, "round", roundNumber)
			}
		}
		return nil
	})
	if err != nil {
		return outcome, err
	}
	outcome.Room = room
	return outcome, nil
}

func currentGeneratingRound(r *internal.Room, roundNumber int) *internal.Round {
	if r.Game == nil {
		return nil
	}
	round := r.CurrentRound()
	if round == nil || round.RoundNumber != roundNumber {
		return nil
	}
	if round.Status != internal.PhaseImageGenerate {
		return nil
	}
	return round
}
