package dialogue

import (
	"slices"

	"quietspot/app/model"
	"quietspot/app/service/extractor"
)

const (
	suggestNewSearch = "새로운 장소 찾아줘"
	suggestThanks    = "감사합니다"
	suggestMoreInfo  = "더 자세한 정보"
	suggestFinish    = "대화 종료"
)

// afterRecommendation handles turns once a round of recommendations has been
// delivered. It never signals readiness.
func (s *Service) afterRecommendation(text string, cc model.ConversationContext) Outcome {
	vocab := s.extractor.Vocabulary()

	switch vocab.DetectIntent(text) {
	case extractor.IntentNewSearch:
		cc.ResetSearch()

		return Outcome{
			Text:        "새로운 장소를 찾아드릴게요! " + vocab.Question(model.FieldCategory).Text,
			Type:        TypeClarification,
			Suggestions: slices.Clone(vocab.Question(model.FieldCategory).Suggestions),
			Context:     cc,
		}

	case extractor.IntentGratitude:
		cc.Stage = model.StageCompleted

		return Outcome{
			Text:        `도움이 되었다니 기쁩니다! 언제든지 새로운 조용한 장소가 필요하시면 "새로운 장소 찾아줘"라고 말씀해 주세요. 😊`,
			Type:        TypeCompletion,
			Suggestions: []string{suggestNewSearch, suggestFinish},
			Context:     cc,
		}

	case extractor.IntentMoreInfo:
		if cc.Stage != model.StageRecommendationsReady {
			cc.Stage = model.StageRecommendationsProvided
		}

		return Outcome{
			Text:        "추천해드린 장소들은 조용함 점수가 높고 검증된 곳들입니다. 지도에서 위치를 확인하시거나, 새로운 조건으로 다른 장소를 찾아보실 수 있어요!",
			Type:        TypeInformation,
			Suggestions: []string{suggestNewSearch, suggestThanks},
			Context:     cc,
		}

	default:
		return Outcome{
			Text:        "추천해드린 장소들이 마음에 드시나요? 새로운 조건으로 다른 장소를 찾아보시거나, 추가 질문이 있으시면 언제든 말씀해 주세요!",
			Type:        TypeFollowup,
			Suggestions: []string{suggestNewSearch, suggestThanks, suggestMoreInfo},
			Context:     cc,
		}
	}
}
