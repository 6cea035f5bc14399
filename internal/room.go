package internal

// Methods (Room / Game / Round)

func (r *Room) Player(id string) *Player {
	if r.Players == nil {
		return nil
	}
	return r.Players[id]
}

func (r *Room) PlayerCount() int {
	return len(r.Players)
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

func (r *Room) AllPlayersReady() bool {
	for _, p := range r.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// OldestPlayer returns the remaining player with the earliest JoinedAt,
// used for host migration.
func (r *Room) OldestPlayer() *Player {
	var oldest *Player
	for _, id := range r.PlayerOrder {
		p := r.Players[id]
		if p == nil {
			continue
		}
		if oldest == nil || p.JoinedAt.Before(oldest.JoinedAt) {
			oldest = p
		}
	}
	return oldest
}

// CurrentRound returns the round at Game.CurrentRound, or nil when no game
// is running.
func (r *Room) CurrentRound() *Round {
	if r.Game == nil {
		return nil
	}
	return r.Game.Round(r.Game.CurrentRound)
}

// Round returns the 1-indexed round, nil when out of range.
func (g *Game) Round(number int) *Round {
	if number < 1 || number > len(g.Rounds) {
		return nil
	}
	return g.Rounds[number-1]
}

func (rd *Round) TotalSelections() int {
	return len(rd.SelectionOrder)
}

// RevealImageId is the image the reveal cursor currently points at, empty
// when nothing is selected yet.
func (rd *Round) RevealImageId() string {
	if rd.CurrentRevealIndex < 0 || rd.CurrentRevealIndex >= len(rd.SelectionOrder) {
		return ""
	}
	sel := rd.Selections[rd.SelectionOrder[rd.CurrentRevealIndex]]
	if sel == nil {
		return ""
	}
	return sel.ImageId
}

// SelectionForImage walks selections in reveal order and returns the one
// holding imageId.
func (rd *Round) SelectionForImage(imageId string) *ImageSelection {
	for _, playerId := range rd.SelectionOrder {
		if sel := rd.Selections[playerId]; sel != nil && sel.ImageId == imageId {
			return sel
		}
	}
	return nil
}

// AllPromptsReady reports whether every submission reached PromptReady.
func (rd *Round) AllPromptsReady() bool {
	for _, sub := range rd.Prompts {
		if sub.Status != PromptReady {
			return false
		}
	}
	return true
}

// AllPromptsSettled reports whether every submission reached a terminal
// state (ready, failed or rejected).
func (rd *Round) AllPromptsSettled() bool {
	for _, sub := range rd.Prompts {
		switch sub.Status {
		case PromptReady, PromptFailed, PromptRejected:
		default:
			return false
		}
	}
	return true
}

func (rd *Round) RejectedPlayerIds() []string {
	var ids []string
	for _, sub := range rd.Prompts {
		if sub.Status == PromptRejected {
			ids = append(ids, sub.PlayerId)
		}
	}
	return ids
}

// ImageById looks an image up across all submissions of the round.
func (rd *Round) ImageById(imageId string) *GeneratedImage {
	for _, sub := range rd.Prompts {
		for _, img := range sub.Images {
			if img.Id == imageId {
				return img
			}
		}
	}
	return nil
}
