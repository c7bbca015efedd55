package survey

// QuestionSet is a set of question ids.
type QuestionSet map[string]struct{}

func (s QuestionSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s QuestionSet) Len() int {
	return len(s)
}

// ConditionalSet collects every question id that some option jumps to. Those
// questions are reachable only by taking that jump, never by falling through
// from the previous question.
func ConditionalSet(questions []Question) QuestionSet {
	set := make(QuestionSet)
	for _, q := range questions {
		for _, opt := range q.Options {
			next := NormalizeNextQuestionID(opt.NextQuestionID)
			if next != "" {
				set[next] = struct{}{}
			}
		}
	}
	return set
}
