// Package expression writes gloss-dependent facial geometry into the FACE
// component of a pose.
package expression

import (
	"strings"

	"github.com/ayusman/islpose/internal/pose"
)

// Strategy fills the facial point range of a pose. start is the absolute
// index of the first FACE point.
type Strategy interface {
	Apply(p *pose.Pose, start int, gloss string) error
}

var questionWords = []string{"what", "where", "when", "who", "why", "how"}

// isQuestion reports whether the gloss contains a question word.
func isQuestion(gloss string) bool {
	lower := strings.ToLower(gloss)
	for _, w := range questionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func hasKeyword(gloss, word string) bool {
	return strings.Contains(strings.ToLower(gloss), word)
}

// setFacePoint writes up to three coordinates, clipped to the channels the
// body carries.
func setFacePoint(b *pose.Body, frame, person, point int, x, y, z float64) {
	coords := [3]float64{x, y, z}
	n := b.Dims()
	if n > len(coords) {
		n = len(coords)
	}
	for ch := 0; ch < n; ch++ {
		b.Set(frame, person, point, ch, coords[ch])
	}
}
