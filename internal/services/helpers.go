package services

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/safeshipper/hazard-assessment-service/internal/flow"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
)

func marshalJSON(value interface{}) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// flowQuestions flattens a template's sections into the ordered question
// sequence the flow controller walks. Sections are assumed to be preloaded
// in order.
func flowQuestions(template *models.AssessmentTemplate) []flow.Question {
	var questions []flow.Question
	for _, section := range template.Sections {
		for _, q := range section.Questions {
			questions = append(questions, flow.Question{
				ID:                    q.ID,
				Text:                  q.Text,
				Type:                  flowQuestionType(q.Type),
				HelpText:              stringValue(q.HelpText),
				Required:              q.IsRequired,
				PhotoRequiredOnFail:   q.PhotoRequiredOnFail,
				CommentRequiredOnFail: q.CommentRequiredOnFail,
				CriticalFailure:       q.CriticalFailure,
				Section:               section.Title,
				Order:                 q.Order,
			})
		}
	}
	return questions
}

func flowQuestionType(t models.QuestionType) flow.QuestionType {
	switch t {
	case models.QuestionPassFailNA:
		return flow.PassFailNA
	case models.QuestionText:
		return flow.Text
	case models.QuestionNumeric:
		return flow.Numeric
	default:
		return flow.YesNoNA
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
