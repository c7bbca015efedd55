package survey

import (
	"strings"

	"NYCU-SDC/survey-backend/internal"
)

// RespondentClass is the population a respondent belongs to. Its values share
// the storage spelling of TargetAudience.
type RespondentClass string

const (
	RespondentClassEmployee RespondentClass = "employee"
	RespondentClassGeneral  RespondentClass = "general"
)

// AudienceToUppercase converts database audience format (lowercase) to API format (uppercase).
func AudienceToUppercase(a TargetAudience) string {
	switch a {
	case TargetAudienceAll:
		return "ALL"
	case TargetAudienceEmployee:
		return "EMPLOYEE"
	case TargetAudienceGeneral:
		return "GENERAL"
	default:
		return string(a)
	}
}

// AudienceFromAPIFormat converts API audience format (uppercase) to database format (lowercase).
func AudienceFromAPIFormat(s string) (TargetAudience, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ALL":
		return TargetAudienceAll, nil
	case "EMPLOYEE":
		return TargetAudienceEmployee, nil
	case "GENERAL":
		return TargetAudienceGeneral, nil
	default:
		return "", internal.ErrInvalidTargetAudience
	}
}

func RespondentClassToUppercase(c RespondentClass) string {
	switch c {
	case RespondentClassEmployee:
		return "EMPLOYEE"
	case RespondentClassGeneral:
		return "GENERAL"
	default:
		return string(c)
	}
}

func RespondentClassFromAPIFormat(s string) (RespondentClass, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EMPLOYEE":
		return RespondentClassEmployee, nil
	case "GENERAL":
		return RespondentClassGeneral, nil
	default:
		return "", internal.ErrInvalidRespondentType
	}
}

// overlaps reports whether two audiences can reach the same respondent.
func overlaps(a, b TargetAudience) bool {
	return a == TargetAudienceAll || b == TargetAudienceAll || a == b
}
