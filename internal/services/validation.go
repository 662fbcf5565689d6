package services

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/kontakt/internal/models"
)

// Global validator instance (reused across all submissions)
var validate = validator.New()

// ValidateSubmission checks every field and returns all failures, in form order.
func ValidateSubmission(input models.SubmissionInput) []string {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{models.MsgInvalidBody}
	}

	messages := make([]string, 0, len(ve))
	for _, fe := range ve {
		messages = append(messages, fieldMessage(fe))
	}
	return messages
}

// fieldMessage converts a validator FieldError to the form's German message
func fieldMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "FirstName":
		return models.MsgFirstNameRequired
	case "LastName":
		return models.MsgLastNameRequired
	case "Email":
		if fe.Tag() == "required" {
			return models.MsgEmailRequired
		}
		return models.MsgEmailInvalid
	case "Message":
		return models.MsgMessageRequired
	default:
		return models.MsgInvalidBody
	}
}

// JoinValidationMessages renders aggregated field errors as one message
func JoinValidationMessages(messages []string) string {
	return strings.Join(messages, models.ValidationSeparator)
}
