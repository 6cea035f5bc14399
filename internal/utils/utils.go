package utils

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// CodeAlphabet excludes visually ambiguous characters (I, O, 0, 1) so codes
// survive being read off someone else's screen.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const RoomCodeLength = 4

// NewID returns a fresh uuid string for rooms, players, games and images.
func NewID() string {
	return uuid.NewString()
}

// GenerateRoomCode produces an uppercase code drawn uniformly from
// CodeAlphabet.
func GenerateRoomCode() string {
	b := make([]byte, RoomCodeLength)
	for i := range b {
		b[i] = CodeAlphabet[rand.IntN(len(CodeAlphabet))]
	}
	return string(b)
}

// ValidRoomCode accepts 4-8 characters from the code alphabet. Input is
// expected to be uppercased already.
func ValidRoomCode(code string) bool {
	if len(code) < 4 || len(code) > 8 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(CodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// NormalizeRoomCode uppercases and trims a user-supplied code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
