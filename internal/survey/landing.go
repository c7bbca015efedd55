package survey

import (
	"sort"
)

// PickForClass returns the survey a respondent of the given class lands on:
// the newest active survey whose audience includes the class. The boolean is
// false when no survey is currently available.
func PickForClass(definitions []*Definition, class RespondentClass) (*Definition, bool) {
	candidates := make([]*Definition, 0, len(definitions))
	for _, d := range definitions {
		if d.IsActive && d.Accepts(class) {
			candidates = append(candidates, d)
		}
	}

	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	return candidates[0], true
}
