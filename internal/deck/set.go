// Package deck holds the flashcard data model. Card order is the order the
// collaborator sent and is never re-sorted.
package deck

import "math"

// Card is a single question/answer pair
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Set is an ordered collection of cards keyed by question.
// A nil *Set behaves like an empty set.
type Set struct {
	cards      []Card
	duplicates int
}

// NewSet builds a set from cards in the given order. A repeated question
// keeps its first position and takes the answer of its last occurrence.
func NewSet(cards []Card) *Set {
	s := &Set{}
	index := make(map[string]int, len(cards))
	for _, c := range cards {
		s.add(index, c.Question, c.Answer)
	}
	return s
}

func (s *Set) add(index map[string]int, question, answer string) {
	if i, ok := index[question]; ok {
		s.cards[i].Answer = answer
		s.duplicates++
		return
	}
	index[question] = len(s.cards)
	s.cards = append(s.cards, Card{Question: question, Answer: answer})
}

// Len returns the number of cards
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cards)
}

// Card returns the card at position i
func (s *Set) Card(i int) (Card, bool) {
	if s == nil || i < 0 || i >= len(s.cards) {
		return Card{}, false
	}
	return s.cards[i], true
}

// Cards returns a copy of all cards in review order
func (s *Set) Cards() []Card {
	if s == nil {
		return nil
	}
	return append([]Card(nil), s.cards...)
}

// Duplicates returns how many repeated questions were collapsed while building the set
func (s *Set) Duplicates() int {
	if s == nil {
		return 0
	}
	return s.duplicates
}

// Counters are the figures the collaborator reports with every generated set
type Counters struct {
	Count              int `json:"count"`
	TextWordCount      int `json:"text_word_count"`
	FlashcardWordCount int `json:"flashcard_word_count"`
}

// Result is the payload handed from generation to review: the cards and
// their counters travel together.
type Result struct {
	Cards *Set
	Counters
}

// Len returns the number of cards in the result; nil results are empty.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return r.Cards.Len()
}

// Compression returns the generated word count as a rounded percentage of the input word count
func (r *Result) Compression() int {
	if r == nil {
		return 0
	}
	return r.Counters.Compression()
}

// Compression returns the generated word count as a rounded percentage of the input word count
func (c Counters) Compression() int {
	if c.TextWordCount <= 0 {
		return 0
	}
	return int(math.Round(float64(c.FlashcardWordCount) / float64(c.TextWordCount) * 100))
}

// Statistics are the collaborator's global usage counters
type Statistics struct {
	TotalFlashcardsGenerated int `json:"total_flashcards_generated"`
	TotalTextsProcessed      int `json:"total_texts_processed"`
	TotalImagesProcessed     int `json:"total_images_processed"`
}
