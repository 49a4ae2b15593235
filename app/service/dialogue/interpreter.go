package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	_ "embed"

	"quietspot/app/model"
)

//go:embed interpret_system_prompt.txt
var interpretSystemPrompt string

//go:embed interpret_user_template.txt
var interpretUserTemplate string

const (
	interpretHistoryTurns = 4
	apologyText           = "죄송합니다. 일시적인 오류가 발생했습니다."
)

type interpretation struct {
	Text        string            `json:"text"`
	Preferences model.Preferences `json:"extractedPreferences"`
	Ready       bool              `json:"readyForRecommendations"`
	Type        string            `json:"type"`
	Suggestions []string          `json:"suggestions"`
}

// interpret delegates preference gathering to the language model. The model's
// preferences are coerced onto the vocabulary and the no-repeat rule still
// bounds the number of clarifying turns.
func (s *Service) interpret(ctx context.Context, text string, cc model.ConversationContext) Outcome {
	history, err := json.Marshal(cc.RecentHistory(interpretHistoryTurns))
	if err != nil {
		history = []byte("[]")
	}

	prefs, err := json.Marshal(cc.Preferences)
	if err != nil {
		prefs = []byte("{}")
	}

	templateValues := map[string]any{
		"history":     string(history),
		"preferences": string(prefs),
		"message":     text,
	}

	prompt := interpretUserTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	answer, err := s.interpreter.Converse(ctx, interpretSystemPrompt, prompt)
	if err != nil {
		slog.Error("Preference interpretation failed", "error", err)

		return Outcome{
			Text:        apologyText,
			Type:        TypeError,
			Suggestions: []string{},
			Context:     cc,
		}
	}

	parsed, ok := parseInterpretation(answer)
	if !ok {
		return Outcome{
			Text:        answer,
			Type:        TypeResponse,
			Suggestions: []string{},
			Context:     cc,
		}
	}

	found := s.extractor.Normalize(parsed.Preferences)

	if parsed.Ready {
		cc.Preferences = cc.Preferences.Merge(found)
		if parsed.Text == "" {
			parsed.Text = "알겠습니다! 현재 정보로 장소를 추천해드릴게요."
		}

		return s.ready(cc, parsed.Text)
	}

	out := s.gather(found, cc)
	if parsed.Text != "" && out.Type == TypeClarification {
		out.Text = parsed.Text
		if len(parsed.Suggestions) > 0 {
			out.Suggestions = slices.Clone(parsed.Suggestions)
		}
	}

	return out
}

func parseInterpretation(answer string) (*interpretation, bool) {
	result := strings.Trim(answer, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var parsed interpretation
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		return nil, false
	}

	return &parsed, true
}
