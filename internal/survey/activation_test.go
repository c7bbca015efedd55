package survey

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func definitionWith(active bool, audience TargetAudience) *Definition {
	return &Definition{ID: uuid.New(), IsActive: active, TargetAudience: audience}
}

func activeSet(all []*Definition, updates []StatusUpdate) map[uuid.UUID]TargetAudience {
	state := make(map[uuid.UUID]*Definition, len(all))
	for _, d := range all {
		copied := *d
		state[d.ID] = &copied
	}
	for _, u := range updates {
		d := state[u.SurveyID]
		d.IsActive = u.IsActive
		if u.TargetAudience != nil {
			d.TargetAudience = *u.TargetAudience
		}
	}

	result := make(map[uuid.UUID]TargetAudience)
	for id, d := range state {
		if d.IsActive {
			result[id] = d.TargetAudience
		}
	}
	return result
}

func TestResolveActivation_Deactivate(t *testing.T) {
	a := definitionWith(true, TargetAudienceGeneral)
	b := definitionWith(true, TargetAudienceEmployee)

	updates := ResolveActivation(a.ID, false, TargetAudienceEmployee, []*Definition{a, b})

	require.Len(t, updates, 1)
	require.Equal(t, a.ID, updates[0].SurveyID)
	require.False(t, updates[0].IsActive)
	require.NotNil(t, updates[0].TargetAudience)
	require.Equal(t, TargetAudienceEmployee, *updates[0].TargetAudience)
}

func TestResolveActivation_Exclusivity(t *testing.T) {
	type testCase struct {
		name            string
		surveys         func() (target *Definition, others []*Definition)
		desiredAudience TargetAudience
		expectedTouched int
		expectedActive  int
	}

	testCases := []testCase{
		{
			name: "activating for ALL deactivates every other survey",
			surveys: func() (*Definition, []*Definition) {
				return definitionWith(false, TargetAudienceEmployee), []*Definition{
					definitionWith(true, TargetAudienceGeneral),
					definitionWith(false, TargetAudienceEmployee),
				}
			},
			desiredAudience: TargetAudienceAll,
			expectedTouched: 2,
			expectedActive:  1,
		},
		{
			name: "disjoint audiences are untouched",
			surveys: func() (*Definition, []*Definition) {
				return definitionWith(false, TargetAudienceGeneral), []*Definition{
					definitionWith(true, TargetAudienceGeneral),
				}
			},
			desiredAudience: TargetAudienceEmployee,
			expectedTouched: 0,
			expectedActive:  2,
		},
		{
			name: "survey targeting ALL overlaps a specific audience",
			surveys: func() (*Definition, []*Definition) {
				return definitionWith(false, TargetAudienceGeneral), []*Definition{
					definitionWith(true, TargetAudienceAll),
					definitionWith(true, TargetAudienceEmployee),
				}
			},
			desiredAudience: TargetAudienceEmployee,
			expectedTouched: 2,
			expectedActive:  1,
		},
		{
			name: "same audience is replaced",
			surveys: func() (*Definition, []*Definition) {
				return definitionWith(false, TargetAudienceGeneral), []*Definition{
					definitionWith(true, TargetAudienceGeneral),
					definitionWith(true, TargetAudienceEmployee),
				}
			},
			desiredAudience: TargetAudienceGeneral,
			expectedTouched: 1,
			expectedActive:  2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target, others := tc.surveys()
			all := append([]*Definition{target}, others...)

			updates := ResolveActivation(target.ID, true, tc.desiredAudience, all)

			require.Equal(t, target.ID, updates[0].SurveyID)
			require.True(t, updates[0].IsActive)
			require.Equal(t, tc.desiredAudience, *updates[0].TargetAudience)
			require.Len(t, updates, tc.expectedTouched+1)

			for _, u := range updates[1:] {
				require.False(t, u.IsActive)
				require.Nil(t, u.TargetAudience, "audience of deactivated surveys is left unchanged")
			}

			active := activeSet(all, updates)
			require.Len(t, active, tc.expectedActive)
			for id, audience := range active {
				for otherID, otherAudience := range active {
					if id != otherID {
						require.False(t, overlaps(audience, otherAudience), "two active surveys overlap")
					}
				}
			}
		})
	}
}

func TestResolveActivation_Examples(t *testing.T) {
	// A(active, GENERAL), B(inactive, EMPLOYEE): activating B for ALL
	// deactivates A.
	a := definitionWith(true, TargetAudienceGeneral)
	b := definitionWith(false, TargetAudienceEmployee)

	active := activeSet([]*Definition{a, b}, ResolveActivation(b.ID, true, TargetAudienceAll, []*Definition{a, b}))
	require.Equal(t, map[uuid.UUID]TargetAudience{b.ID: TargetAudienceAll}, active)

	// A(active, GENERAL): activating C for EMPLOYEE leaves A untouched.
	c := definitionWith(false, TargetAudienceGeneral)
	updates := ResolveActivation(c.ID, true, TargetAudienceEmployee, []*Definition{a, c})
	require.Len(t, updates, 1)
	require.Equal(t, c.ID, updates[0].SurveyID)
}
