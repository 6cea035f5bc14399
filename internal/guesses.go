package internal

import (
	"encoding/json"
	"fmt"
)

// GuessBoard holds the guesses of a round keyed by image id. The outer
// sequence preserves the order in which images entered the reveal, the inner
// map is a lookup by guesser. It serializes as a sequence of
// [imageId, {playerId: guess}] pairs.
type GuessBoard []GuessEntry

type GuessEntry struct {
	ImageId  string
	ByPlayer map[string]*Guess
}

func (e GuessEntry) MarshalJSON() ([]byte, error) {
	byPlayer := e.ByPlayer
	if byPlayer == nil {
		byPlayer = map[string]*Guess{}
	}
	return json.Marshal([2]any{e.ImageId, byPlayer})
}

func (e *GuessEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("guess entry: expected [imageId, guesses] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ImageId); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.ByPlayer)
}

// ForImage returns the guesses recorded against imageId, nil when none.
func (b GuessBoard) ForImage(imageId string) map[string]*Guess {
	for i := range b {
		if b[i].ImageId == imageId {
			return b[i].ByPlayer
		}
	}
	return nil
}

// Put records a guess, appending a new entry the first time an image is
// guessed at so outer ordering follows reveal order.
func (b *GuessBoard) Put(imageId string, g *Guess) {
	for i := range *b {
		if (*b)[i].ImageId == imageId {
			(*b)[i].ByPlayer[g.PlayerId] = g
			return
		}
	}
	*b = append(*b, GuessEntry{
		ImageId:  imageId,
		ByPlayer: map[string]*Guess{g.PlayerId: g},
	})
}
