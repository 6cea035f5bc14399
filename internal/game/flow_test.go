package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/imagegen"
	"github.com/promptguessr/backend/internal/store"
)

func oneRound() *internal.Settings {
	return &internal.Settings{RoundCount: 1}
}

// settlePrompt drives one submission through generation the way the
// orchestrator's worker does, injecting genErr when non-nil.
func settlePrompt(t *testing.T, svc *Service, roomId string, roundNumber int, playerId string, genErr error) generationOutcome {
	t.Helper()
	ctx := context.Background()

	_, err := svc.markPromptGenerating(ctx, roomId, roundNumber, playerId)
	require.NoError(t, err)

	var images []*internal.GeneratedImage
	if genErr == nil {
		room, err := svc.GetRoom(ctx, roomId)
		require.NoError(t, err)
		prompt := room.CurrentRound().Prompts[playerId].Prompt
		images, err = svc.gen.Generate(ctx, prompt, room.Settings.ImageCount, playerId)
		require.NoError(t, err)
	}

	out, err := svc.recordGenerationResult(ctx, roomId, roundNumber, playerId, images, genErr)
	require.NoError(t, err)
	return out
}

// advanceToImageSelect submits one prompt per player and settles generation.
func advanceToImageSelect(t *testing.T, svc *Service, roomId string, players []string) {
	t.Helper()
	ctx := context.Background()

	for i, pid := range players {
		_, all, err := svc.SubmitPrompt(ctx, roomId, pid, fmt.Sprintf("a watercolor fox number %d", i))
		require.NoError(t, err)
		assert.Equal(t, i == len(players)-1, all)
	}
	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	roundNumber := room.Game.CurrentRound
	for _, pid := range players {
		settlePrompt(t, svc, roomId, roundNumber, pid, nil)
	}
}

// advanceToRevealGuess additionally has every player select their first image.
func advanceToRevealGuess(t *testing.T, svc *Service, roomId string, players []string) {
	t.Helper()
	ctx := context.Background()
	advanceToImageSelect(t, svc, roomId, players)

	for _, pid := range players {
		room, err := svc.GetRoom(ctx, roomId)
		require.NoError(t, err)
		imageId := room.CurrentRound().Prompts[pid].Images[0].Id
		_, _, err = svc.SelectImage(ctx, roomId, pid, imageId)
		require.NoError(t, err)
	}
}

// guessAll runs the reveal: for each image in selection order every other
// player guesses. guessFor picks the text a guesser submits.
func guessAll(t *testing.T, svc *Service, roomId string, players []string, guessFor func(guesser, creator string) string) {
	t.Helper()
	ctx := context.Background()

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	order := append([]string(nil), room.CurrentRound().SelectionOrder...)

	for _, creator := range order {
		room, err = svc.GetRoom(ctx, roomId)
		require.NoError(t, err)
		imageId := room.CurrentRound().Selections[creator].ImageId
		for _, guesser := range players {
			if guesser == creator {
				continue
			}
			_, _, err := svc.SubmitGuess(ctx, roomId, guesser, imageId, guessFor(guesser, creator))
			require.NoError(t, err)
		}
	}
}

func TestStartGame(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 3, nil)

	room, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	assert.Equal(t, internal.RoomPlaying, room.Status)
	require.NotNil(t, room.Game)
	assert.Equal(t, internal.PhasePromptSubmit, room.Game.Status)
	assert.Equal(t, 1, room.Game.CurrentRound)
	require.Len(t, room.Game.Rounds, 1)
	assert.Equal(t, internal.PhasePromptSubmit, room.Game.Rounds[0].Status)

	lb := room.Game.Leaderboard
	require.NotNil(t, lb)
	assert.Equal(t, players, lb.Rankings)
	for _, pid := range players {
		require.Contains(t, lb.Scores, pid)
		assert.Zero(t, lb.Scores[pid].TotalScore)
		assert.Empty(t, lb.Scores[pid].RoundScores)
	}
}

func TestStartGameGuards(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	t.Run("non-host", func(t *testing.T) {
		roomId, players := setupRoom(t, svc, 2, nil)
		_, err := svc.StartGame(ctx, roomId, players[1])
		assert.ErrorIs(t, err, internal.ErrNotHost)
	})

	t.Run("alone", func(t *testing.T) {
		room, hostId, err := svc.CreateRoom(ctx, "Solo", nil)
		require.NoError(t, err)
		_, err = svc.SetReady(ctx, room.Id, hostId, true)
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, room.Id, hostId)
		assert.ErrorIs(t, err, internal.ErrNotEnoughPlayers)
	})

	t.Run("not all ready", func(t *testing.T) {
		roomId, players := setupRoom(t, svc, 2, nil)
		_, err := svc.SetReady(ctx, roomId, players[1], false)
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, roomId, players[0])
		assert.ErrorIs(t, err, internal.ErrPlayersNotReady)
	})

	t.Run("already started", func(t *testing.T) {
		roomId, players := setupRoom(t, svc, 2, nil)
		_, err := svc.StartGame(ctx, roomId, players[0])
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, roomId, players[0])
		assert.ErrorIs(t, err, internal.ErrInvalidPhase)
	})
}

func TestSubmitPromptValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, nil)
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	_, _, err = svc.SubmitPrompt(ctx, roomId, players[0], "short")
	assert.ErrorIs(t, err, internal.ErrInvalidInput)

	_, _, err = svc.SubmitPrompt(ctx, roomId, players[0], "a perfectly fine prompt")
	require.NoError(t, err)
	_, _, err = svc.SubmitPrompt(ctx, roomId, players[0], "trying to submit twice here")
	assert.ErrorIs(t, err, internal.ErrInvalidPhase)

	_, _, err = svc.SubmitPrompt(ctx, roomId, "stranger", "a prompt from outside the room")
	assert.ErrorIs(t, err, internal.ErrPlayerNotInRoom)
}

func TestPromptLengthCountsCharacters(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, nil)
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	// 150 characters of CJK is well within 10-200 even at three bytes each.
	_, _, err = svc.SubmitPrompt(ctx, roomId, players[0], strings.Repeat("猫", 150))
	require.NoError(t, err)

	// Four emoji are 16 bytes but only four characters, under the minimum.
	_, _, err = svc.SubmitPrompt(ctx, roomId, players[1], strings.Repeat("🐈", 4))
	assert.ErrorIs(t, err, internal.ErrInvalidInput)

	_, _, err = svc.SubmitPrompt(ctx, roomId, players[1], strings.Repeat("猫", 201))
	assert.ErrorIs(t, err, internal.ErrInvalidInput)
}

func TestGuessLengthCountsCharacters(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)
	advanceToRevealGuess(t, svc, roomId, players)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	round := room.CurrentRound()
	creator := round.SelectionOrder[0]
	imageId := round.Selections[creator].ImageId
	guesser := players[0]
	if guesser == creator {
		guesser = players[1]
	}

	// Two CJK characters are six bytes but still under the three-character
	// minimum.
	_, _, err = svc.SubmitGuess(ctx, roomId, guesser, imageId, "猫猫")
	assert.ErrorIs(t, err, internal.ErrInvalidInput)

	_, _, err = svc.SubmitGuess(ctx, roomId, guesser, imageId, "猫猫猫")
	require.NoError(t, err)
}

// Full round with two players: prompts in, images generated, selections
// made, everybody guesses, scores land, results close the game.
func TestFullRound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	advanceToRevealGuess(t, svc, roomId, players)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	round := room.CurrentRound()
	assert.Equal(t, internal.PhaseRevealGuess, round.Status)
	assert.Len(t, round.SelectionOrder, 2)
	assert.Zero(t, round.CurrentRevealIndex)

	// Guess the other player's prompt verbatim for a guaranteed 100.
	guessAll(t, svc, roomId, players, func(_, creator string) string {
		return round.Prompts[creator].Prompt
	})

	room, err = svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, internal.PhaseScoring, room.Game.Status)

	room, err = svc.ScoreRound(ctx, roomId)
	require.NoError(t, err)
	round = room.CurrentRound()
	assert.Equal(t, internal.PhaseRevealResults, room.Game.Status)
	assert.Zero(t, round.CurrentResultIndex)

	lb := room.Game.Leaderboard
	for _, pid := range players {
		ps := lb.Scores[pid]
		assert.Equal(t, 100, ps.TotalScore, "exact guesses score 100")
		assert.Equal(t, []int{100}, ps.RoundScores)
		assert.Equal(t, 1, ps.GuessWins)
		assert.Zero(t, ps.PromptPicks)
	}
	// Tied totals rank by join order.
	assert.Equal(t, players, lb.Rankings)
	for _, entry := range round.Guesses {
		for _, g := range entry.ByPlayer {
			require.NotNil(t, g.Score)
			assert.Equal(t, 100, *g.Score)
		}
	}

	room, changed, err := svc.CompleteReveal(ctx, roomId)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, internal.PhaseGameEnd, room.Game.Status)
	assert.Equal(t, internal.RoomFinished, room.Status)
	assert.NotNil(t, room.Game.FinishedAt)
	assert.Equal(t, internal.PhaseCompleted, room.Game.Rounds[0].Status)
}

func TestRejectionAndResubmission(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	for i, pid := range players {
		_, _, err := svc.SubmitPrompt(ctx, roomId, pid, fmt.Sprintf("an oil painting of ships %d", i))
		require.NoError(t, err)
	}

	out := settlePrompt(t, svc, roomId, 1, players[0], nil)
	assert.False(t, out.AllSettled)

	out = settlePrompt(t, svc, roomId, 1, players[1], imagegen.ErrContentPolicy)
	assert.True(t, out.AllSettled)
	assert.False(t, out.Transitioned)
	assert.Equal(t, []string{players[1]}, out.RejectedPlayerIds)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, internal.PhaseImageGenerate, room.Game.Status)
	assert.Equal(t, internal.PromptRejected, room.CurrentRound().Prompts[players[1]].Status)

	// Only the rejected submitter may resubmit, and only from rejected.
	_, _, err = svc.ResubmitPrompt(ctx, roomId, players[0], "replacing a prompt that was fine")
	assert.ErrorIs(t, err, internal.ErrInvalidPhase)

	room, transitioned, err := svc.ResubmitPrompt(ctx, roomId, players[1], "a friendlier oil painting of ships")
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, internal.PhaseImageSelect, room.Game.Status)
	sub := room.CurrentRound().Prompts[players[1]]
	assert.Equal(t, internal.PromptReady, sub.Status)
	assert.Len(t, sub.Images, room.Settings.ImageCount)
}

// failingGen always reports the configured error.
type failingGen struct{ err error }

func (g failingGen) Name() string { return "failing" }

func (g failingGen) Generate(context.Context, string, int, string) ([]*internal.GeneratedImage, error) {
	return nil, g.err
}

// A transiently failing resubmission that settles the round must still move
// it to image_select and say so, so the gateway can broadcast the change.
func TestResubmitTransientFailureStillSettlesRound(t *testing.T) {
	svc := NewService(store.NewMemory(), failingGen{err: imagegen.ErrGeneration}, zap.NewNop().Sugar())
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	for i, pid := range players {
		_, _, err := svc.SubmitPrompt(ctx, roomId, pid, fmt.Sprintf("a charcoal study of bridges %d", i))
		require.NoError(t, err)
	}

	_, err = svc.markPromptGenerating(ctx, roomId, 1, players[0])
	require.NoError(t, err)
	images := []*internal.GeneratedImage{{Id: "img-a", PlayerId: players[0], Status: internal.ImageComplete}}
	_, err = svc.recordGenerationResult(ctx, roomId, 1, players[0], images, nil)
	require.NoError(t, err)
	settlePrompt(t, svc, roomId, 1, players[1], imagegen.ErrContentPolicy)

	room, transitioned, err := svc.ResubmitPrompt(ctx, roomId, players[1], "a friendlier study of bridges")
	assert.ErrorIs(t, err, imagegen.ErrGeneration)
	assert.True(t, transitioned)
	assert.Equal(t, internal.PhaseImageSelect, room.Game.Status)
	assert.Equal(t, internal.PromptFailed, room.CurrentRound().Prompts[players[1]].Status)
}

// Generation during resubmission runs on its own deadline; a dead session
// context must not turn a good prompt into a failed one.
func TestResubmitSurvivesExpiredSessionContext(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	for i, pid := range players {
		_, _, err := svc.SubmitPrompt(ctx, roomId, pid, fmt.Sprintf("a linocut print of harbors %d", i))
		require.NoError(t, err)
	}
	settlePrompt(t, svc, roomId, 1, players[0], nil)
	settlePrompt(t, svc, roomId, 1, players[1], imagegen.ErrContentPolicy)

	expired, cancel := context.WithCancel(context.Background())
	cancel()

	room, transitioned, err := svc.ResubmitPrompt(expired, roomId, players[1], "a gentler print of harbors")
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, internal.PhaseImageSelect, room.Game.Status)
	assert.Equal(t, internal.PromptReady, room.CurrentRound().Prompts[players[1]].Status)
}

func TestTransientFailureDegradesRound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 3, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	for i, pid := range players {
		_, _, err := svc.SubmitPrompt(ctx, roomId, pid, fmt.Sprintf("a pencil sketch of a city %d", i))
		require.NoError(t, err)
	}

	settlePrompt(t, svc, roomId, 1, players[0], nil)
	settlePrompt(t, svc, roomId, 1, players[1], nil)
	out := settlePrompt(t, svc, roomId, 1, players[2], imagegen.ErrGeneration)

	// A failed submission does not hold the round: it moves on without
	// that player's images.
	assert.True(t, out.AllSettled)
	assert.True(t, out.Transitioned)
	assert.True(t, out.AnyFailed)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, internal.PhaseImageSelect, room.Game.Status)
	assert.Equal(t, internal.PromptFailed, room.CurrentRound().Prompts[players[2]].Status)
}

func TestStumperBonus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 3, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	advanceToRevealGuess(t, svc, roomId, players)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	round := room.CurrentRound()

	// Everyone nails the first two prompts and whiffs the host's.
	guessAll(t, svc, roomId, players, func(_, creator string) string {
		if creator == players[0] {
			return "zebra quantum spreadsheet"
		}
		return round.Prompts[creator].Prompt
	})

	room, err = svc.ScoreRound(ctx, roomId)
	require.NoError(t, err)
	round = room.CurrentRound()

	hostImage := round.Selections[players[0]].ImageId
	assert.Equal(t, 50, round.BonusPoints[hostImage])

	lb := room.Game.Leaderboard
	assert.Equal(t, 1, lb.Scores[players[0]].PromptPicks)
	assert.Zero(t, lb.Scores[players[1]].PromptPicks)
	// The bonus lands in the round score alongside guess points.
	assert.Equal(t, round.Scores[players[0]], lb.Scores[players[0]].TotalScore)
	assert.GreaterOrEqual(t, round.Scores[players[0]], 50)
}

// The last two generation results landing concurrently must produce exactly
// one transition to image_select.
func TestConcurrentGenerationSingleTransition(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 4, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	for i, pid := range players {
		_, _, err := svc.SubmitPrompt(ctx, roomId, pid, fmt.Sprintf("a mosaic of lighthouses %d", i))
		require.NoError(t, err)
	}

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	count := room.Settings.ImageCount

	var wg sync.WaitGroup
	transitions := make(chan bool, len(players))
	errs := make(chan error, len(players)*2)
	for _, pid := range players {
		wg.Add(1)
		go func(pid string) {
			defer wg.Done()
			if _, err := svc.markPromptGenerating(ctx, roomId, 1, pid); err != nil {
				errs <- err
				return
			}
			images, err := svc.gen.Generate(ctx, "a mosaic of lighthouses", count, pid)
			if err != nil {
				errs <- err
				return
			}
			out, err := svc.recordGenerationResult(ctx, roomId, 1, pid, images, nil)
			if err != nil {
				errs <- err
				return
			}
			transitions <- out.Transitioned
		}(pid)
	}
	wg.Wait()
	close(transitions)
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	total := 0
	for transitioned := range transitions {
		if transitioned {
			total++
		}
	}
	assert.Equal(t, 1, total)

	room, err = svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, internal.PhaseImageSelect, room.Game.Status)
}

func TestStaleGenerationResultIgnored(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	advanceToImageSelect(t, svc, roomId, players)

	// The round already moved on; a late worker result is dropped.
	out, err := svc.recordGenerationResult(ctx, roomId, 1, players[0], nil, imagegen.ErrGeneration)
	require.NoError(t, err)
	assert.True(t, out.Stale)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	assert.Equal(t, internal.PromptReady, room.CurrentRound().Prompts[players[0]].Status)
}

func TestSelectImageGuards(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)
	advanceToImageSelect(t, svc, roomId, players)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	round := room.CurrentRound()
	otherImage := round.Prompts[players[1]].Images[0].Id

	_, _, err = svc.SelectImage(ctx, roomId, players[0], otherImage)
	assert.ErrorIs(t, err, internal.ErrInvalidInput)
	_, _, err = svc.SelectImage(ctx, roomId, players[0], "no-such-image")
	assert.ErrorIs(t, err, internal.ErrInvalidInput)

	// Re-selecting replaces without duplicating the reveal order slot.
	first := round.Prompts[players[0]].Images[0].Id
	second := round.Prompts[players[0]].Images[1].Id
	_, all, err := svc.SelectImage(ctx, roomId, players[0], first)
	require.NoError(t, err)
	assert.False(t, all)
	room, all, err = svc.SelectImage(ctx, roomId, players[0], second)
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, []string{players[0]}, room.CurrentRound().SelectionOrder)
	assert.Equal(t, second, room.CurrentRound().Selections[players[0]].ImageId)
}

func TestSubmitGuessGuards(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 3, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)
	advanceToRevealGuess(t, svc, roomId, players)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	round := room.CurrentRound()
	creator := round.SelectionOrder[0]
	revealed := round.Selections[creator].ImageId
	later := round.Selections[round.SelectionOrder[1]].ImageId

	guesser := players[0]
	if guesser == creator {
		guesser = players[1]
	}

	_, _, err = svc.SubmitGuess(ctx, roomId, guesser, revealed, "x")
	assert.ErrorIs(t, err, internal.ErrInvalidInput, "too short")

	_, _, err = svc.SubmitGuess(ctx, roomId, guesser, later, "guessing out of turn")
	assert.ErrorIs(t, err, internal.ErrInvalidInput, "not under reveal")

	_, _, err = svc.SubmitGuess(ctx, roomId, creator, revealed, "guessing my own prompt")
	assert.ErrorIs(t, err, internal.ErrInvalidInput, "own image")

	_, _, err = svc.SubmitGuess(ctx, roomId, guesser, revealed, "a reasonable first guess")
	require.NoError(t, err)
	_, _, err = svc.SubmitGuess(ctx, roomId, guesser, revealed, "a sneaky second guess")
	assert.ErrorIs(t, err, internal.ErrInvalidInput, "duplicate")
}

func TestGuessAdvancesRevealCursor(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 3, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)
	advanceToRevealGuess(t, svc, roomId, players)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	round := room.CurrentRound()
	creator := round.SelectionOrder[0]
	imageId := round.Selections[creator].ImageId

	var last *internal.Room
	for _, guesser := range players {
		if guesser == creator {
			continue
		}
		last, _, err = svc.SubmitGuess(ctx, roomId, guesser, imageId, "some plausible guess text")
		require.NoError(t, err)
	}

	// All guesses in on image one: cursor moves, phase stays.
	assert.Equal(t, internal.PhaseRevealGuess, last.Game.Status)
	assert.Equal(t, 1, last.CurrentRound().CurrentRevealIndex)
}

func TestNavigateResultClamps(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)
	advanceToRevealGuess(t, svc, roomId, players)
	guessAll(t, svc, roomId, players, func(_, _ string) string { return "a guess of middling quality" })
	_, err = svc.ScoreRound(ctx, roomId)
	require.NoError(t, err)

	room, err := svc.NavigateResult(ctx, roomId, internal.ResultPrevious)
	require.NoError(t, err)
	assert.Zero(t, room.CurrentRound().CurrentResultIndex)

	room, err = svc.NavigateResult(ctx, roomId, internal.ResultNext)
	require.NoError(t, err)
	assert.Equal(t, 1, room.CurrentRound().CurrentResultIndex)

	room, err = svc.NavigateResult(ctx, roomId, internal.ResultNext)
	require.NoError(t, err)
	assert.Equal(t, 1, room.CurrentRound().CurrentResultIndex, "clamped at the last selection")

	_, err = svc.NavigateResult(ctx, roomId, "sideways")
	assert.ErrorIs(t, err, internal.ErrInvalidInput)
}

func TestCompleteRevealIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, &internal.Settings{RoundCount: 2})
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)
	advanceToRevealGuess(t, svc, roomId, players)
	guessAll(t, svc, roomId, players, func(_, _ string) string { return "a guess of middling quality" })
	_, err = svc.ScoreRound(ctx, roomId)
	require.NoError(t, err)

	room, changed, err := svc.CompleteReveal(ctx, roomId)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, internal.PhaseRoundEnd, room.Game.Status)

	// A second continue click is a no-op.
	room, changed, err = svc.CompleteReveal(ctx, roomId)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, internal.PhaseRoundEnd, room.Game.Status)
}

func TestStartNextRound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 2, &internal.Settings{RoundCount: 2})
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	_, err = svc.StartNextRound(ctx, roomId, players[0])
	assert.ErrorIs(t, err, internal.ErrInvalidPhase, "round still running")

	advanceToRevealGuess(t, svc, roomId, players)
	guessAll(t, svc, roomId, players, func(_, _ string) string { return "a guess of middling quality" })
	_, err = svc.ScoreRound(ctx, roomId)
	require.NoError(t, err)
	_, _, err = svc.CompleteReveal(ctx, roomId)
	require.NoError(t, err)

	_, err = svc.StartNextRound(ctx, roomId, players[1])
	assert.ErrorIs(t, err, internal.ErrNotHost)

	room, err := svc.StartNextRound(ctx, roomId, players[0])
	require.NoError(t, err)
	assert.Equal(t, 2, room.Game.CurrentRound)
	require.Len(t, room.Game.Rounds, 2)
	assert.Equal(t, internal.PhasePromptSubmit, room.Game.Status)
	assert.Empty(t, room.Game.Rounds[1].Prompts)

	// Per-round scores reset; totals carry.
	lb := room.Game.Leaderboard
	for _, pid := range players {
		assert.Len(t, lb.Scores[pid].RoundScores, 1)
	}
}

func TestLeaderboardTieBreaksByJoinOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	roomId, players := setupRoom(t, svc, 3, oneRound())
	_, err := svc.StartGame(ctx, roomId, players[0])
	require.NoError(t, err)

	room, err := svc.GetRoom(ctx, roomId)
	require.NoError(t, err)
	round := newRound(1)
	round.Scores = map[string]int{players[2]: 80, players[0]: 40, players[1]: 40}
	updateLeaderboard(room, round)

	lb := room.Game.Leaderboard
	assert.Equal(t, []string{players[2], players[0], players[1]}, lb.Rankings)
	for _, pid := range players {
		assert.Len(t, lb.Scores[pid].RoundScores, 1)
	}
}
