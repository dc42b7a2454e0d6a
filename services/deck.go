package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gorm.io/gorm"
)

// Deck là định dạng file JSON dùng để nạp sẵn một topic.
type Deck struct {
	Title       string         `json:"title"`
	Description *string        `json:"description"`
	Syllabi     []DeckSyllabus `json:"syllabi"`
}

type DeckSyllabus struct {
	Content    string          `json:"content"`
	Flashcards []DeckFlashcard `json:"flashcards"`
}

type DeckFlashcard struct {
	SubtopicID    string   `json:"subtopic_id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Answer        *string  `json:"answer"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correct_option"`
	Difficulty    string   `json:"difficulty"`
}

type ImportSummary struct {
	TopicID    string
	Syllabi    int
	Flashcards int
}

func ParseDeck(r io.Reader) (*Deck, error) {
	var deck Deck
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&deck); err != nil {
		return nil, fmt.Errorf("parse deck: %w", err)
	}
	return &deck, nil
}

// ImportDeck tạo topic, syllabus và flashcard của deck trong một transaction.
func (s *StudyService) ImportDeck(ctx context.Context, userID string, deck *Deck) (*ImportSummary, error) {
	var summary ImportSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs := *s
		txs.db = tx

		topic, err := txs.CreateTopic(ctx, CreateTopicInput{UserID: userID, Title: deck.Title, Description: deck.Description})
		if err != nil {
			return err
		}
		summary.TopicID = topic.ID

		for i, sy := range deck.Syllabi {
			syllabus, err := txs.CreateSyllabus(ctx, CreateSyllabusInput{TopicID: topic.ID, Content: sy.Content})
			if err != nil {
				return fmt.Errorf("syllabus %d: %w", i, err)
			}
			summary.Syllabi++

			for j, fc := range sy.Flashcards {
				_, err := txs.CreateFlashcard(ctx, CreateFlashcardInput{
					SyllabusID:    syllabus.ID,
					SubtopicID:    fc.SubtopicID,
					Type:          fc.Type,
					Question:      fc.Question,
					Answer:        fc.Answer,
					Options:       fc.Options,
					CorrectOption: fc.CorrectOption,
					Difficulty:    fc.Difficulty,
				})
				if err != nil {
					return fmt.Errorf("syllabus %d flashcard %d: %w", i, j, err)
				}
				summary.Flashcards++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
