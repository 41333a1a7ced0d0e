package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"codeberg.org/snonux/studycards/internal/deck"
)

// CardCount returns how many cards to ask for, by input word count
func CardCount(words int) int {
	switch {
	case words < 100:
		return 3
	case words < 300:
		return 5
	case words < 600:
		return 7
	default:
		return 10
	}
}

const systemPrompt = "You turn study material into flashcards for students. " +
	"Each card asks one clear question about a key point of the material and gives a short, self-contained answer. " +
	"Only use facts stated in the material. Respond with JSON only."

const extractPrompt = "Transcribe all readable text in this image exactly as written, keeping paragraph breaks. " +
	"Respond with the text only. If there is no readable text, respond with an empty string."

func cardsPrompt(text string, count int) string {
	return fmt.Sprintf(`Create exactly %d flashcards from the study material below, ordered as the points appear in it.
Return a JSON object of this form:
{"flashcards": [{"question": "...", "answer": "..."}]}
Questions must be unique.

Study material:
"""
%s
"""`, count, strings.TrimSpace(text))
}

type cardsResponse struct {
	Flashcards []deck.Card `json:"flashcards"`
}

// parseCards decodes a model reply into cards, tolerating a markdown code fence
func parseCards(raw string) ([]deck.Card, error) {
	raw = stripFence(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty model response")
	}

	var resp cardsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	cards := make([]deck.Card, 0, len(resp.Flashcards))
	for _, c := range resp.Flashcards {
		q, a := strings.TrimSpace(c.Question), strings.TrimSpace(c.Answer)
		if q == "" || a == "" {
			continue
		}
		cards = append(cards, deck.Card{Question: q, Answer: a})
	}
	return cards, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
