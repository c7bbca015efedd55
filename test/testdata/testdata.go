package testdata

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
)

func RandomName() string {
	return gofakeit.AppName() + " survey"
}

func RandomDescription() string {
	return gofakeit.Phrase()
}

func RandomQuestionText() string {
	return gofakeit.Question()
}

func RandomOptionText() string {
	return gofakeit.Word()
}

// RandomQuestionID returns an id that is unique within a single survey as long
// as n is.
func RandomQuestionID(n int) string {
	return fmt.Sprintf("q%d_%s", n, gofakeit.LetterN(4))
}
