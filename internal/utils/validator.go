package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/safeshipper/hazard-assessment-service/internal/errors"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
)

// Validator wraps a configured validator.Validate with our custom rules
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with all custom rules registered
func NewValidator() *Validator {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return &Validator{validate: validate}
}

// ValidateStruct validates struct tags, converting field failures into the
// shared ValidationErrors type.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// Engine returns the underlying validate instance
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Custom validation functions

func ValidateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.QuestionYesNoNA,
		models.QuestionPassFailNA,
		models.QuestionText,
		models.QuestionNumeric,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateAnswerValue(fl validator.FieldLevel) bool {
	validValues := []models.AnswerValue{
		models.AnswerYes,
		models.AnswerNo,
		models.AnswerNA,
		models.AnswerPass,
		models.AnswerFail,
	}

	value := fl.Field().String()
	for _, validValue := range validValues {
		if strings.EqualFold(string(validValue), value) {
			return true
		}
	}
	// Text and numeric questions carry free-form values.
	return value != ""
}

func ValidateSecurityEventKind(fl validator.FieldLevel) bool {
	validKinds := []models.SecurityEventKind{
		models.EventTimingAnomaly,
		models.EventAppSwitch,
		models.EventScreenshot,
		models.EventOther,
	}

	value := fl.Field().String()
	for _, validKind := range validKinds {
		if string(validKind) == value {
			return true
		}
	}
	return false
}

func ValidateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleDriver,
		models.RoleLoader,
		models.RoleManager,
		models.RoleAdmin,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("answer_value", ValidateAnswerValue)
	validate.RegisterValidation("security_event_kind", ValidateSecurityEventKind)
	validate.RegisterValidation("user_role", ValidateUserRole)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
