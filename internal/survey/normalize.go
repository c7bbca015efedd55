package survey

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NormalizeNextQuestionID folds every "no jump" spelling into the empty string.
// Stored documents may carry "", "null", "undefined", JSON null or nothing at all.
func NormalizeNextQuestionID(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s = v
	case *string:
		if v == nil {
			return ""
		}
		s = *v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		s = fmt.Sprint(v)
	}

	s = strings.TrimSpace(s)
	switch s {
	case "", "null", "undefined":
		return ""
	}
	return s
}

// FromRow converts a stored survey into a prepared Definition. A question
// document that cannot be read yields an empty question list instead of an
// error so that one corrupted survey never breaks listing or landing.
func FromRow(row Survey, logger *zap.Logger) *Definition {
	questions, err := NormalizeQuestions(row.Questions)
	if err != nil {
		logger.Warn("Failed to normalize stored survey questions, treating survey as empty",
			zap.String("survey_id", row.ID.String()),
			zap.Error(err),
		)
		questions = []Question{}
	}

	audience := row.TargetAudience
	if _, err := AudienceFromAPIFormat(string(audience)); err != nil {
		audience = TargetAudienceAll
	}

	createdAt := time.Now()
	if row.CreatedAt.Valid {
		createdAt = row.CreatedAt.Time
	}

	updatedAt := createdAt
	if row.UpdatedAt.Valid {
		updatedAt = row.UpdatedAt.Time
	}

	d := &Definition{
		ID:             row.ID,
		Title:          row.Title,
		Description:    row.Description,
		Questions:      questions,
		IsActive:       row.IsActive,
		TargetAudience: audience,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
	return d.Prepare()
}

// NormalizeQuestions reads a loosely shaped question list. Missing fields are
// defaulted the same way legacy documents were read:
//   - question text falls back to "title", type to SINGLE_CHOICE
//   - "required" is accepted for isRequired
//   - option id falls back to "value", text to "label", an empty
//     nextQuestionId to "next"
func NormalizeQuestions(raw []byte) ([]Question, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []Question{}, nil
	}

	var docs []any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}

	return normalizeQuestionList(docs), nil
}

func normalizeQuestionList(docs []any) []Question {
	questions := make([]Question, 0, len(docs))
	for i, item := range docs {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		questions = append(questions, normalizeQuestion(i, doc))
	}
	return questions
}

func normalizeQuestion(position int, doc map[string]any) Question {
	id := stringField(doc, "id", "_id")
	if id == "" {
		id = "q" + strconv.Itoa(position+1)
	}

	questionType := QuestionType(strings.ToUpper(stringField(doc, "type")))
	if !questionType.Valid() {
		questionType = QuestionTypeSingleChoice
	}

	q := Question{
		ID:         id,
		Text:       stringField(doc, "text", "title"),
		Type:       questionType,
		IsRequired: boolField(doc, "isRequired", "required"),
	}

	// Options are kept for every type; their jumps feed the conditional set.
	rawOptions, _ := doc["options"].([]any)
	for _, item := range rawOptions {
		optionDoc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q.Options = append(q.Options, normalizeOption(optionDoc))
	}

	return q
}

func normalizeOption(doc map[string]any) Option {
	next := NormalizeNextQuestionID(doc["nextQuestionId"])
	if next == "" {
		next = NormalizeNextQuestionID(doc["next"])
	}

	return Option{
		ID:             stringField(doc, "id", "value"),
		Text:           stringField(doc, "text", "label"),
		NextQuestionID: next,
	}
}

// NormalizeDocument reads a complete legacy survey document, as exported by
// the previous document store, into a Definition.
func NormalizeDocument(raw []byte) (*Definition, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal survey document: %w", err)
	}

	id := uuid.New()
	if legacyID := stringField(doc, "id", "_id"); legacyID != "" {
		parsed, err := uuid.Parse(legacyID)
		if err != nil {
			parsed = uuid.NewSHA1(uuid.NameSpaceOID, []byte(legacyID))
		}
		id = parsed
	}

	audience, err := AudienceFromAPIFormat(stringField(doc, "targetAudience"))
	if err != nil {
		audience = TargetAudienceAll
	}

	createdAt := time.Now()
	if rawCreatedAt := stringField(doc, "createdAt"); rawCreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, rawCreatedAt); err == nil {
			createdAt = parsed
		}
	}

	rawQuestions, _ := doc["questions"].([]any)

	d := &Definition{
		ID:             id,
		Title:          stringField(doc, "title"),
		Description:    stringField(doc, "description"),
		Questions:      normalizeQuestionList(rawQuestions),
		IsActive:       boolField(doc, "isActive"),
		TargetAudience: audience,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	return d.Prepare(), nil
}

// stringField returns the first non-empty value among keys.
func stringField(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := doc[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func boolField(doc map[string]any, keys ...string) bool {
	for _, key := range keys {
		switch v := doc[key].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}
