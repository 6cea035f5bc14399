package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
)

// Notifier is how the orchestrator reaches the room's connected clients.
// The websocket hub implements it.
type Notifier interface {
	ImageProgress(room *internal.Room)
	PhaseTransition(room *internal.Room, phase internal.GamePhase)
	PromptRejected(room *internal.Room, playerId, reason string)
}

const (
	generateTimeout  = 2 * time.Minute
	progressInterval = 100 * time.Millisecond
)

// Orchestrator drives the asynchronous parts of a round: fanning image
// generation out per prompt and scoring once guessing ends. Everything it
// does re-enters the room critical section through the service, so its
// goroutines never race room state.
type Orchestrator struct {
	svc      *Service
	notifier Notifier
	log      *zap.SugaredLogger
}

func NewOrchestrator(svc *Service, n Notifier, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{svc: svc, notifier: n, log: log.Named("orchestrator")}
}

// StartGeneration launches one worker per submitted prompt. Called right
// after the round enters image_generate; returns immediately.
func (o *Orchestrator) StartGeneration(roomId string, roundNumber int) {
	go func() {
		ctx := context.Background()
		room, err := o.svc.GetRoom(ctx, roomId)
		if err != nil {
			o.log.Errorw("generation aborted: room load failed", "room", roomId, "err", err)
			return
		}
		round := room.CurrentRound()
		if round == nil || round.RoundNumber != roundNumber {
			return
		}

		for playerId, sub := range round.Prompts {
			go o.generateFor(roomId, roundNumber, playerId, sub.Prompt, room.Settings.ImageCount)
			// Slight stagger keeps the progress fan-out readable on the client.
			time.Sleep(progressInterval)
		}
	}()
}

func (o *Orchestrator) generateFor(roomId string, roundNumber int, playerId, prompt string, count int) {
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	started, err := o.svc.markPromptGenerating(ctx, roomId, roundNumber, playerId)
	if err != nil {
		o.log.Errorw("mark generating failed", "room", roomId, "player", playerId, "err", err)
		return
	}
	if !started {
		return
	}
	if room, err := o.svc.GetRoom(ctx, roomId); err == nil {
		o.notifier.ImageProgress(room)
	}

	images, genErr := o.svc.gen.Generate(ctx, prompt, count, playerId)
	outcome, err := o.svc.recordGenerationResult(ctx, roomId, roundNumber, playerId, images, genErr)
	if err != nil {
		o.log.Errorw("record generation failed", "room", roomId, "player", playerId, "err", err)
		return
	}
	if outcome.Stale {
		o.log.Debugw("dropping stale generation result", "room", roomId, "round", roundNumber, "player", playerId)
		return
	}

	o.notifier.ImageProgress(outcome.Room)
	if !outcome.AllSettled {
		return
	}

	if outcome.Transitioned {
		o.notifier.PhaseTransition(outcome.Room, internal.PhaseImageSelect)
		return
	}
	// Rejected submitters hold the round open until they resubmit.
	for _, rejected := range outcome.RejectedPlayerIds {
		o.notifier.PromptRejected(outcome.Room, rejected, "prompt was rejected by the image provider")
	}
}

// ScheduleScoring scores the round in the background once the last guess
// lands, then announces the results phase.
func (o *Orchestrator) ScheduleScoring(roomId string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		room, err := o.svc.ScoreRound(ctx, roomId)
		if err != nil {
			o.log.Errorw("scoring failed", "room", roomId, "err", err)
			return
		}
		o.notifier.PhaseTransition(room, internal.PhaseRevealResults)
	}()
}
