package audio

import (
	"strings"
	"unicode/utf8"

	"codeberg.org/snonux/studycards/internal/apperr"
)

// MaxSpeechRunes is the longest input the speech providers accept
const MaxSpeechRunes = 4096

// ValidateSpeechText checks that text is speakable: not blank and not too long
func ValidateSpeechText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperr.Validation("text", "cannot be empty")
	}
	if n := utf8.RuneCountInString(text); n > MaxSpeechRunes {
		return apperr.Validation("text", "is %d characters long, maximum is %d", n, MaxSpeechRunes)
	}
	return nil
}
