package survey

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPickForClass(t *testing.T) {
	now := time.Now()
	older := &Definition{ID: uuid.New(), Title: "older all", IsActive: true, TargetAudience: TargetAudienceAll, CreatedAt: now.Add(-time.Hour)}
	newer := &Definition{ID: uuid.New(), Title: "newer employee", IsActive: true, TargetAudience: TargetAudienceEmployee, CreatedAt: now}
	inactive := &Definition{ID: uuid.New(), Title: "inactive general", IsActive: false, TargetAudience: TargetAudienceGeneral, CreatedAt: now.Add(time.Hour)}

	testCases := []struct {
		name        string
		definitions []*Definition
		class       RespondentClass
		expected    *Definition
	}{
		{name: "employee gets newest matching survey", definitions: []*Definition{older, newer, inactive}, class: RespondentClassEmployee, expected: newer},
		{name: "general falls back to ALL survey", definitions: []*Definition{older, newer, inactive}, class: RespondentClassGeneral, expected: older},
		{name: "inactive surveys are never picked", definitions: []*Definition{inactive}, class: RespondentClassGeneral, expected: nil},
		{name: "no surveys", definitions: nil, class: RespondentClassEmployee, expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, ok := PickForClass(tc.definitions, tc.class)
			if tc.expected == nil {
				require.False(t, ok)
				require.Nil(t, result)
				return
			}
			require.True(t, ok)
			require.Equal(t, tc.expected.ID, result.ID)
		})
	}
}
