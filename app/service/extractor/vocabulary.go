package extractor

import (
	_ "embed"
	"strings"
	"sync"

	"quietspot/app/model"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

type Intent string

const (
	IntentNone      Intent = ""
	IntentNewSearch Intent = "new_search"
	IntentGratitude Intent = "gratitude"
	IntentMoreInfo  Intent = "more_info"
)

// intentOrder is the order in which post-recommendation intents are tried.
var intentOrder = []Intent{IntentNewSearch, IntentGratitude, IntentMoreInfo}

type Synonyms struct {
	Value    string   `yaml:"value"`
	Keywords []string `yaml:"keywords"`
}

type Question struct {
	Text        string   `yaml:"text"`
	Suggestions []string `yaml:"suggestions"`
}

type Vocabulary struct {
	Version    int                      `yaml:"version"`
	Locations  []string                 `yaml:"locations"`
	Categories []Synonyms               `yaml:"categories"`
	Purposes   []Synonyms               `yaml:"purposes"`
	Atmosphere []Synonyms               `yaml:"atmosphere"`
	Intents    map[Intent][]string      `yaml:"intents"`
	Questions  map[model.Field]Question `yaml:"questions"`
}

var loadDefault = sync.OnceValues(func() (*Vocabulary, error) {
	return ParseVocabulary(defaultVocabulary)
})

// DefaultVocabulary returns the embedded keyword table.
func DefaultVocabulary() (*Vocabulary, error) {
	return loadDefault()
}

func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, oops.In("extractor").Wrapf(err, "failed to parse vocabulary")
	}

	if len(v.Locations) == 0 || len(v.Categories) == 0 || len(v.Purposes) == 0 {
		return nil, oops.In("extractor").With("version", v.Version).Errorf("vocabulary is incomplete")
	}

	for _, field := range model.RequiredFields {
		if _, ok := v.Questions[field]; !ok {
			return nil, oops.In("extractor").With("field", field).Errorf("vocabulary has no question")
		}
	}

	return &v, nil
}

// Question returns the canned clarifying question for a field.
func (v *Vocabulary) Question(field model.Field) Question {
	q, ok := v.Questions[field]
	if !ok {
		return Question{Text: "추가 정보를 알려주세요.", Suggestions: []string{}}
	}

	return q
}

// PurposeLabel returns the user-facing word for a purpose, the first keyword
// of its entry.
func (v *Vocabulary) PurposeLabel(purpose model.Purpose) string {
	idx := pie.FindFirstUsing(v.Purposes, func(s Synonyms) bool {
		return s.Value == string(purpose)
	})
	if idx < 0 || len(v.Purposes[idx].Keywords) == 0 {
		return string(purpose)
	}

	return v.Purposes[idx].Keywords[0]
}

// DetectIntent classifies a post-recommendation message. The first matching
// family wins.
func (v *Vocabulary) DetectIntent(text string) Intent {
	lower := strings.ToLower(text)

	idx := pie.FindFirstUsing(intentOrder, func(intent Intent) bool {
		return containsAny(lower, v.Intents[intent])
	})
	if idx < 0 {
		return IntentNone
	}

	return intentOrder[idx]
}

func (v *Vocabulary) location(lower string) string {
	idx := pie.FindFirstUsing(v.Locations, func(loc string) bool {
		return strings.Contains(lower, strings.ToLower(loc))
	})
	if idx < 0 {
		return ""
	}

	return v.Locations[idx]
}

func firstMatch(lower string, table []Synonyms) string {
	idx := pie.FindFirstUsing(table, func(s Synonyms) bool {
		return containsAny(lower, s.Keywords)
	})
	if idx < 0 {
		return ""
	}

	return table[idx].Value
}

func containsAny(lower string, keywords []string) bool {
	return pie.Any(keywords, func(keyword string) bool {
		return strings.Contains(lower, strings.ToLower(keyword))
	})
}
