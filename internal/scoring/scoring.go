package scoring

import (
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	// Weighting between token overlap and edit distance.
	tokenWeight = 0.6
	editWeight  = 0.4

	// StumperBonus goes to an image's creator when guesses average below
	// StumperThreshold.
	StumperBonus     = 50
	StumperThreshold = 40.0
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Similarity scores how close a guess is to the original prompt, in [0,100].
// Exact matches (case/whitespace-insensitive) score 100; otherwise the score
// blends token-set Jaccard overlap with normalized Levenshtein distance.
func Similarity(original, guess string) int {
	o := strings.ToLower(strings.TrimSpace(original))
	g := strings.ToLower(strings.TrimSpace(guess))
	if o == g {
		return 100
	}

	k := jaccard(tokenize(o), tokenize(g))

	var l float64
	oLen := len([]rune(o))
	gLen := len([]rune(g))
	if oLen == 0 && gLen == 0 {
		l = 1
	} else {
		dist := levenshtein.ComputeDistance(o, g)
		l = 1 - float64(dist)/float64(max(oLen, gLen))
	}

	s := int(math.Round(100 * (tokenWeight*k + editWeight*l)))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// tokenize replaces punctuation with spaces and splits on whitespace.
func tokenize(s string) map[string]struct{} {
	tokens := strings.Fields(nonWord.ReplaceAllString(s, " "))
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ImageScore is one guesser's similarity result for a single image.
type ImageScore struct {
	PlayerId string
	Score    int
}

// AwardImagePoints turns per-guess similarity scores into points. Every
// guesser earns their score; the creator earns the stumper bonus when the
// guesses average under the threshold. An image nobody guessed at awards
// nothing.
func AwardImagePoints(scores []ImageScore, creatorId string) (points map[string]int, stumper bool) {
	points = make(map[string]int)
	if len(scores) == 0 {
		return points, false
	}

	sum := 0
	for _, s := range scores {
		points[s.PlayerId] += s.Score
		sum += s.Score
	}

	mean := float64(sum) / float64(len(scores))
	if mean < StumperThreshold {
		points[creatorId] += StumperBonus
		stumper = true
	}
	return points, stumper
}
