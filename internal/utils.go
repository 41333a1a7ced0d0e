package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// GenerateCardID creates a unique ID for an exported card based on timestamp and question
// Format: epochMillis_md5(question)[:8]
func GenerateCardID(question string) string {
	epochMillis := time.Now().UnixNano() / 1000000

	hash := md5.Sum([]byte(question))
	hashStr := hex.EncodeToString(hash[:])[:8]

	return fmt.Sprintf("%d_%s", epochMillis, hashStr)
}

// SanitizeFilename creates a safe filename from a string
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// WordCount counts whitespace separated words the same way the collaborator does
func WordCount(s string) int {
	return len(strings.Fields(s))
}
