package internal

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var questionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-.:]+$`)

func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "ALL", "EMPLOYEE", "GENERAL":
			return true
		}
		return false
	})

	_ = v.RegisterValidation("respondent_class", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "EMPLOYEE", "GENERAL":
			return true
		}
		return false
	})

	_ = v.RegisterValidation("question_id", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		if id == "" {
			return true
		}
		return questionIDPattern.MatchString(id)
	})

	return v
}
