package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/imagegen"
)

// dispatch routes one client frame. Validation errors go back to the sender
// only; state changes fan out to the whole room.
func (h *Hub) dispatch(c *Client, msg internal.Message[json.RawMessage]) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case internal.CmdPlayerReady:
		err = h.handleReady(ctx, c, msg.Data)
	case internal.CmdStartGame:
		err = h.handleStartGame(ctx, c)
	case internal.CmdSubmitPrompt:
		err = h.handleSubmitPrompt(ctx, c, msg.Data)
	case internal.CmdResubmitPrompt:
		err = h.handleResubmitPrompt(ctx, c, msg.Data)
	case internal.CmdSelectImage:
		err = h.handleSelectImage(ctx, c, msg.Data)
	case internal.CmdSubmitGuess:
		err = h.handleSubmitGuess(ctx, c, msg.Data)
	case internal.CmdNavigateResult:
		err = h.handleNavigateResult(ctx, c, msg.Data)
	case internal.CmdCompleteReveal:
		err = h.handleCompleteReveal(ctx, c)
	case internal.CmdNextRound:
		err = h.handleNextRound(ctx, c)
	default:
		err = fmt.Errorf("%w: unknown command %q", internal.ErrInvalidInput, msg.Type)
	}
	if err != nil {
		h.sendError(c, err, msg.Type)
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("%w: %v", internal.ErrInvalidInput, err)
	}
	return data, nil
}

func (h *Hub) handleReady(ctx context.Context, c *Client, raw json.RawMessage) error {
	data, err := decode[internal.PlayerReadyData](raw)
	if err != nil {
		return err
	}
	room, err := h.svc.SetReady(ctx, c.RoomId, c.PlayerId, data.IsReady)
	if err != nil {
		return err
	}
	h.broadcast(room.Id, internal.Message[internal.PlayerReadyChangedData]{
		Type: internal.EvtPlayerReadyChanged,
		Data: internal.PlayerReadyChangedData{PlayerId: c.PlayerId, IsReady: data.IsReady},
	})
	h.broadcastRoomUpdate(room)
	return nil
}

// requireHost rejects host-only commands before they reach the service;
// the service re-validates under the room lock.
func (h *Hub) requireHost(ctx context.Context, c *Client) error {
	room, err := h.svc.GetRoom(ctx, c.RoomId)
	if err != nil {
		return err
	}
	if room.HostId != c.PlayerId {
		return fmt.Errorf("%w: only the host may do this", internal.ErrNotHost)
	}
	return nil
}

func (h *Hub) handleStartGame(ctx context.Context, c *Client) error {
	if err := h.requireHost(ctx, c); err != nil {
		return err
	}
	room, err := h.svc.StartGame(ctx, c.RoomId, c.PlayerId)
	if err != nil {
		return err
	}
	h.broadcast(room.Id, internal.Message[internal.GameStartedData]{
		Type: internal.EvtGameStarted,
		Data: internal.GameStartedData{Game: room.Game},
	})
	h.broadcastRoomUpdate(room)
	return nil
}

func (h *Hub) handleSubmitPrompt(ctx context.Context, c *Client, raw json.RawMessage) error {
	data, err := decode[internal.SubmitPromptData](raw)
	if err != nil {
		return err
	}
	room, allSubmitted, err := h.svc.SubmitPrompt(ctx, c.RoomId, c.PlayerId, data.Prompt)
	if err != nil {
		return err
	}
	h.broadcast(room.Id, internal.Message[internal.PromptSubmittedData]{
		Type: internal.EvtPromptSubmitted,
		Data: internal.PromptSubmittedData{PlayerId: c.PlayerId, AllSubmitted: allSubmitted},
	})
	if allSubmitted {
		h.PhaseTransition(room, internal.PhaseImageGenerate)
		h.orch.StartGeneration(room.Id, room.Game.CurrentRound)
	}
	return nil
}

func (h *Hub) handleResubmitPrompt(ctx context.Context, c *Client, raw json.RawMessage) error {
	data, err := decode[internal.SubmitPromptData](raw)
	if err != nil {
		return err
	}
	room, transitioned, err := h.svc.ResubmitPrompt(ctx, c.RoomId, c.PlayerId, data.Prompt)
	switch {
	case errors.Is(err, imagegen.ErrContentPolicy):
		h.PromptRejected(room, c.PlayerId, "prompt was rejected by the image provider")
		return nil
	case errors.Is(err, imagegen.ErrGeneration):
		h.unicast(c.RoomId, c.PlayerId, internal.Message[internal.ErrorData]{
			Type: internal.EvtError,
			Data: internal.ErrorData{
				Code:    "GENERATION_FAILED",
				Message: err.Error(),
				Context: internal.CmdResubmitPrompt,
			},
		})
		h.ImageProgress(room)
		// A failed resubmission can still settle the round; everyone else
		// needs the phase change.
		if transitioned {
			h.PhaseTransition(room, internal.PhaseImageSelect)
		}
		return nil
	case err != nil:
		return err
	}
	h.ImageProgress(room)
	if transitioned {
		h.PhaseTransition(room, internal.PhaseImageSelect)
	}
	return nil
}

func (h *Hub) handleSelectImage(ctx context.Context, c *Client, raw json.RawMessage) error {
	data, err := decode[internal.SelectImageData](raw)
	if err != nil {
		return err
	}
	room, allSelected, err := h.svc.SelectImage(ctx, c.RoomId, c.PlayerId, data.ImageId)
	if err != nil {
		return err
	}
	h.broadcastRoomUpdate(room)
	if allSelected {
		h.PhaseTransition(room, internal.PhaseRevealGuess)
	}
	return nil
}

func (h *Hub) handleSubmitGuess(ctx context.Context, c *Client, raw json.RawMessage) error {
	data, err := decode[internal.SubmitGuessData](raw)
	if err != nil {
		return err
	}
	room, allGuessed, err := h.svc.SubmitGuess(ctx, c.RoomId, c.PlayerId, data.ImageId, data.Guess)
	if err != nil {
		return err
	}
	h.broadcastRoomUpdate(room)
	if allGuessed {
		h.PhaseTransition(room, room.Game.Status)
		if room.Game.Status == internal.PhaseScoring {
			h.orch.ScheduleScoring(room.Id)
		}
	}
	return nil
}

func (h *Hub) handleNavigateResult(ctx context.Context, c *Client, raw json.RawMessage) error {
	data, err := decode[internal.NavigateResultData](raw)
	if err != nil {
		return err
	}
	room, err := h.svc.NavigateResult(ctx, c.RoomId, data.Direction)
	if err != nil {
		return err
	}
	h.broadcastRoomUpdate(room)
	return nil
}

func (h *Hub) handleCompleteReveal(ctx context.Context, c *Client) error {
	room, changed, err := h.svc.CompleteReveal(ctx, c.RoomId)
	if err != nil {
		return err
	}
	if changed {
		h.PhaseTransition(room, room.Game.Status)
		h.broadcastRoomUpdate(room)
	}
	return nil
}

func (h *Hub) handleNextRound(ctx context.Context, c *Client) error {
	if err := h.requireHost(ctx, c); err != nil {
		return err
	}
	room, err := h.svc.StartNextRound(ctx, c.RoomId, c.PlayerId)
	if err != nil {
		return err
	}
	h.PhaseTransition(room, internal.PhasePromptSubmit)
	h.broadcastRoomUpdate(room)
	return nil
}
