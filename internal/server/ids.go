package server

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

var codeWords = []string{
	"amber", "birch", "cedar", "delta", "ember", "fjord", "grove", "heron",
	"indigo", "juniper", "kelp", "lagoon", "maple", "nimbus", "ochre", "pine",
	"quartz", "raven", "summit", "tundra", "umber", "violet", "willow", "zephyr",
}

func newPlayerID() string {
	return "p_" + uuid.NewString()
}

func newPlayerToken() string {
	return "tok_" + uuid.NewString()
}

func newConnID() string {
	return uuid.NewString()
}

// newSessionCode builds a human-shareable word-digits code, retrying
// against the active set. Falls back to a uuid suffix when the space is
// crowded.
func newSessionCode(taken func(code string) bool) string {
	const maxAttempts = 100
	for attempt := 0; attempt < maxAttempts; attempt++ {
		word := codeWords[randomIndex(len(codeWords))]
		digits := 1000 + randomIndex(9000)
		code := fmt.Sprintf("%s-%d", word, digits)
		if !taken(code) {
			return code
		}
	}
	return "game-" + uuid.NewString()[:8]
}

func randomIndex(n int) int {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return 0
	}
	value := int(buf[0])<<24 | int(buf[1])<<16 | int(buf[2])<<8 | int(buf[3])
	if value < 0 {
		value = -value
	}
	return value % n
}
