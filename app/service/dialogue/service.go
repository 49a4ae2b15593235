package dialogue

import (
	"context"
	"fmt"
	"slices"

	"quietspot/app/client/llm"
	"quietspot/app/config"
	"quietspot/app/model"
	"quietspot/app/service/extractor"

	"github.com/samber/do"
)

type ResponseType string

const (
	TypeClarification  ResponseType = "clarification"
	TypeRecommendation ResponseType = "recommendation"
	TypeCompletion     ResponseType = "completion"
	TypeInformation    ResponseType = "information"
	TypeFollowup       ResponseType = "followup"
	TypeResponse       ResponseType = "response"
	TypeError          ResponseType = "error"
)

// Outcome is the result of one orchestrated turn. Context is the updated
// conversation state the caller must persist.
type Outcome struct {
	Text        string
	Type        ResponseType
	Suggestions []string
	Ready       bool
	Context     model.ConversationContext
}

// Interpreter is a conversational model that answers a system prompt and a
// user message.
type Interpreter interface {
	Converse(ctx context.Context, system, user string) (string, error)
}

type Service struct {
	extractor   *extractor.Service
	interpreter Interpreter
	mode        string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	var interpreter Interpreter
	if cfg.Dialogue.Mode == config.DialogueModeGenerative {
		interpreter = do.MustInvoke[*llm.Client](di)
	}

	return NewWithDeps(do.MustInvoke[*extractor.Service](di), interpreter, cfg.Dialogue.Mode), nil
}

func NewWithDeps(ex *extractor.Service, interpreter Interpreter, mode string) *Service {
	if interpreter == nil {
		mode = config.DialogueModeRules
	}

	return &Service{
		extractor:   ex,
		interpreter: interpreter,
		mode:        mode,
	}
}

// Process decides what to say next. The passed context is never modified; the
// updated copy is returned in the outcome. History is left to the caller.
func (s *Service) Process(ctx context.Context, text string, cc model.ConversationContext) Outcome {
	cc = cc.Clone()

	if cc.RecommendationCount > 0 || cc.Stage == model.StageCompleted {
		return s.afterRecommendation(text, cc)
	}

	if s.mode == config.DialogueModeGenerative {
		return s.interpret(ctx, text, cc)
	}

	return s.gather(s.extractor.Extract(text), cc)
}

// gather merges newly mentioned preferences and either asks about the first
// missing field that was not asked before or declares the search ready. A
// field is never asked twice, so a search is ready after at most
// len(model.RequiredFields)+1 turns.
func (s *Service) gather(found model.Preferences, cc model.ConversationContext) Outcome {
	cc.Preferences = cc.Preferences.Merge(found)
	vocab := s.extractor.Vocabulary()

	missing := cc.Preferences.Missing()
	if len(missing) == 0 {
		return s.ready(cc, fmt.Sprintf("완벽합니다! %s 지역의 %s 장소를 %s용으로 추천해드릴게요.",
			cc.Preferences.Location,
			cc.Preferences.Category,
			vocab.PurposeLabel(cc.Preferences.Purpose),
		))
	}

	for _, field := range missing {
		if cc.WasAsked(field) {
			continue
		}

		question := vocab.Question(field)

		cc.QuestionsAsked = append(cc.QuestionsAsked, field)
		cc.Stage = model.GatheringStage(field)

		return Outcome{
			Text:        question.Text,
			Type:        TypeClarification,
			Suggestions: slices.Clone(question.Suggestions),
			Context:     cc,
		}
	}

	category := cc.Preferences.Category
	if category == "" {
		category = "조용한"
	}

	return s.ready(cc, fmt.Sprintf("알겠습니다! 현재 정보로 %s 장소를 추천해드릴게요.", category))
}

func (s *Service) ready(cc model.ConversationContext, text string) Outcome {
	cc.Stage = model.StageRecommendationsReady
	cc.RecommendationCount++

	return Outcome{
		Text:        text,
		Type:        TypeRecommendation,
		Suggestions: []string{},
		Ready:       true,
		Context:     cc,
	}
}
