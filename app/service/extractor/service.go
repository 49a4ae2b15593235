package extractor

import (
	"strings"

	"quietspot/app/model"

	"github.com/samber/do"
)

type Service struct {
	vocab *Vocabulary
}

func New(_ *do.Injector) (*Service, error) {
	vocab, err := DefaultVocabulary()
	if err != nil {
		return nil, err
	}

	return NewWithVocabulary(vocab), nil
}

func NewWithVocabulary(vocab *Vocabulary) *Service {
	return &Service{vocab: vocab}
}

func (s *Service) Vocabulary() *Vocabulary {
	return s.vocab
}

// Extract pulls whatever preference fields the text mentions. Fields that are
// not mentioned stay empty.
func (s *Service) Extract(text string) model.Preferences {
	lower := strings.ToLower(text)

	prefs := model.Preferences{
		Location: s.vocab.location(lower),
		Category: firstMatch(lower, s.vocab.Categories),
		Purpose:  model.Purpose(firstMatch(lower, s.vocab.Purposes)),
	}

	if atmosphere := firstMatch(lower, s.vocab.Atmosphere); atmosphere != "" {
		prefs.Atmosphere = []string{atmosphere}
	}

	return prefs
}

// Normalize coerces free-form preference values (e.g. produced by a language
// model) onto the vocabulary. Values the vocabulary does not know are dropped.
func (s *Service) Normalize(raw model.Preferences) model.Preferences {
	var prefs model.Preferences

	if raw.Location != "" {
		prefs.Location = s.vocab.location(strings.ToLower(raw.Location))
	}
	if raw.Category != "" {
		prefs.Category = s.normalizeValue(raw.Category, s.vocab.Categories)
	}
	if raw.Purpose != "" {
		prefs.Purpose = model.Purpose(s.normalizeValue(string(raw.Purpose), s.vocab.Purposes))
	}

	for _, value := range raw.Atmosphere {
		if atmosphere := s.normalizeValue(value, s.vocab.Atmosphere); atmosphere != "" {
			prefs.Atmosphere = []string{atmosphere}
			break
		}
	}

	return prefs
}

func (s *Service) normalizeValue(value string, table []Synonyms) string {
	lower := strings.ToLower(strings.TrimSpace(value))

	for _, entry := range table {
		if strings.ToLower(entry.Value) == lower {
			return entry.Value
		}
	}

	return firstMatch(lower, table)
}
