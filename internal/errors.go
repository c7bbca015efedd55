package internal

import (
	"errors"

	"github.com/NYCU-SDC/summer/pkg/problem"
)

var (
	// Auth Errors
	ErrInvalidAdminPassword = errors.New("invalid admin password")
	ErrInternalServerError  = errors.New("internal server error")

	// JWT Authentication Errors
	ErrMissingAuthHeader       = errors.New("missing access token")
	ErrInvalidAuthHeaderFormat = errors.New("invalid access token")
	ErrInvalidJWTToken         = errors.New("invalid JWT token")

	// Survey Errors
	ErrSurveyNotFound        = errors.New("survey not found")
	ErrSurveyHasNoQuestions  = errors.New("survey has no questions")
	ErrInvalidTargetAudience = errors.New("invalid target audience")
	ErrDuplicateQuestionID   = errors.New("duplicate question id in survey")
	ErrMarshalQuestions      = errors.New("failed to marshal survey questions")

	// Traversal Errors
	ErrSessionNotFound       = errors.New("survey session not found")
	ErrSessionCompleted      = errors.New("survey session already completed")
	ErrCannotContinue        = errors.New("survey cannot continue from the current question")
	ErrAnswerRequired        = errors.New("question is required but not answered")
	ErrUnknownOption         = errors.New("option does not belong to the current question")
	ErrInvalidRespondentType = errors.New("invalid respondent class")

	// Response Errors
	ErrMarshalAnswers     = errors.New("failed to marshal response answers")
	ErrUnsupportedExport  = errors.New("unsupported export format")
	ErrExportFailed       = errors.New("failed to export responses")
	ErrInvalidRequestBody = errors.New("invalid request body")
)

func NewProblemWriter() *problem.HttpWriter {
	return problem.NewWithMapping(ErrorHandler)
}

func ErrorHandler(err error) problem.Problem {
	switch {
	case errors.Is(err, ErrInvalidAdminPassword):
		return problem.NewUnauthorizedProblem("invalid admin password")
	case errors.Is(err, ErrInternalServerError):
		return problem.NewInternalServerProblem("internal server error")

	// JWT Authentication Errors
	case errors.Is(err, ErrMissingAuthHeader):
		return problem.NewUnauthorizedProblem("missing access token")
	case errors.Is(err, ErrInvalidAuthHeaderFormat):
		return problem.NewUnauthorizedProblem("invalid access token")
	case errors.Is(err, ErrInvalidJWTToken):
		return problem.NewUnauthorizedProblem("invalid JWT token")

	// Survey Errors
	case errors.Is(err, ErrSurveyNotFound):
		return problem.NewNotFoundProblem("survey not found")
	case errors.Is(err, ErrSurveyHasNoQuestions):
		return problem.NewValidateProblem("survey has no questions")
	case errors.Is(err, ErrInvalidTargetAudience):
		return problem.NewValidateProblem("target audience must be one of ALL, EMPLOYEE, GENERAL")
	case errors.Is(err, ErrDuplicateQuestionID):
		return problem.NewValidateProblem("question ids must be unique within a survey")
	case errors.Is(err, ErrMarshalQuestions):
		return problem.NewInternalServerProblem("failed to marshal survey questions")

	// Traversal Errors
	case errors.Is(err, ErrSessionNotFound):
		return problem.NewNotFoundProblem("survey session not found or expired")
	case errors.Is(err, ErrSessionCompleted):
		return problem.NewValidateProblem("survey session already completed")
	case errors.Is(err, ErrCannotContinue):
		return problem.NewValidateProblem("the survey cannot continue, please start again later")
	case errors.Is(err, ErrAnswerRequired):
		return problem.NewValidateProblem("question is required but not answered")
	case errors.Is(err, ErrUnknownOption):
		return problem.NewValidateProblem("option does not belong to the current question")
	case errors.Is(err, ErrInvalidRespondentType):
		return problem.NewValidateProblem("respondent class must be one of GENERAL, EMPLOYEE")

	// Response Errors
	case errors.Is(err, ErrMarshalAnswers):
		return problem.NewInternalServerProblem("failed to marshal response answers")
	case errors.Is(err, ErrUnsupportedExport):
		return problem.NewBadRequestProblem("export format must be csv or xlsx")
	case errors.Is(err, ErrExportFailed):
		return problem.NewInternalServerProblem("failed to export responses")
	case errors.Is(err, ErrInvalidRequestBody):
		return problem.NewBadRequestProblem("invalid request body")
	}
	return problem.Problem{}
}
