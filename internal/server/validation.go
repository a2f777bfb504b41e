package server

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	maxNameLength   = 20
	maxGuessLength  = 60
	minVoteSeconds  = 10
	maxVoteSeconds  = 600
	minGuessSeconds = 10
	maxGuessSeconds = 300
	maxMaxRounds    = 20
)

func validateName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", errors.New("name is required")
	}
	if len([]rune(trimmed)) > maxNameLength {
		return "", fmt.Errorf("name must be %d characters or fewer", maxNameLength)
	}
	if !isSafeText(trimmed) {
		return "", errors.New("name contains unsupported characters")
	}
	return trimmed, nil
}

func validateGuessText(text string) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", errors.New("guess is required")
	}
	if len([]rune(trimmed)) > maxGuessLength {
		return "", fmt.Errorf("guess must be %d characters or fewer", maxGuessLength)
	}
	return trimmed, nil
}

func validateCategory(category string) (string, error) {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return categoryDefault, nil
	}
	if !validCategory(trimmed) {
		return "", errors.New("unknown word category")
	}
	return trimmed, nil
}

func validateSettings(settings Settings) error {
	if settings.VoteSeconds < minVoteSeconds || settings.VoteSeconds > maxVoteSeconds {
		return fmt.Errorf("vote_seconds must be between %d and %d", minVoteSeconds, maxVoteSeconds)
	}
	if settings.GuessSeconds < minGuessSeconds || settings.GuessSeconds > maxGuessSeconds {
		return fmt.Errorf("guess_seconds must be between %d and %d", minGuessSeconds, maxGuessSeconds)
	}
	if settings.MaxRounds < 0 || settings.MaxRounds > maxMaxRounds {
		return fmt.Errorf("max_rounds must be between 0 and %d", maxMaxRounds)
	}
	return nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			continue
		}
		switch r {
		case '-', '_', '\'', '.':
			continue
		default:
			return false
		}
	}
	return true
}
