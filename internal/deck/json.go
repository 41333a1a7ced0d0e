package deck

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON decodes a JSON object of question/answer pairs, keeping key order.
func (s *Set) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode flashcards: %w", err)
	}
	if tok == nil {
		*s = Set{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode flashcards: expected object, got %v", tok)
	}

	decoded := Set{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode flashcards: %w", err)
		}
		question, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode flashcards: unexpected key %v", keyTok)
		}

		var answer string
		if err := dec.Decode(&answer); err != nil {
			return fmt.Errorf("decode flashcards: answer for %q: %w", question, err)
		}
		decoded.add(index, question, answer)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode flashcards: %w", err)
	}

	*s = decoded
	return nil
}

// MarshalJSON encodes the set as a JSON object in review order.
func (s *Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s.Cards() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Question)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(c.Answer)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type resultJSON struct {
	Flashcards *Set `json:"flashcards"`
	Counters
}

// UnmarshalJSON decodes the collaborator's flashcard response.
// A missing "flashcards" member leaves Cards nil.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Cards = raw.Flashcards
	r.Counters = raw.Counters
	return nil
}

// MarshalJSON encodes the result in the collaborator's wire format.
func (r *Result) MarshalJSON() ([]byte, error) {
	cards := r.Cards
	if cards == nil {
		cards = &Set{}
	}
	return json.Marshal(resultJSON{Flashcards: cards, Counters: r.Counters})
}
