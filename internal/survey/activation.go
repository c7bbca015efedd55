package survey

import (
	"github.com/google/uuid"
)

// StatusUpdate is one write produced by ResolveActivation. A nil
// TargetAudience leaves the stored audience unchanged.
type StatusUpdate struct {
	SurveyID       uuid.UUID
	IsActive       bool
	TargetAudience *TargetAudience
}

// ResolveActivation computes the writes needed to put the target survey into
// the desired state while keeping at most one active survey per audience.
//
// Deactivating only touches the target. Activating also deactivates every
// other survey whose audience overlaps the desired one:
//   - desired audience ALL overlaps every survey
//   - a survey targeting ALL overlaps every desired audience
//   - EMPLOYEE and GENERAL overlap only themselves
//
// Overlapping surveys are emitted even when already inactive.
func ResolveActivation(targetID uuid.UUID, desiredActive bool, desiredAudience TargetAudience, all []*Definition) []StatusUpdate {
	audience := desiredAudience
	target := StatusUpdate{
		SurveyID:       targetID,
		IsActive:       desiredActive,
		TargetAudience: &audience,
	}

	if !desiredActive {
		return []StatusUpdate{target}
	}

	updates := []StatusUpdate{target}
	for _, s := range all {
		if s.ID == targetID {
			continue
		}
		if overlaps(desiredAudience, s.TargetAudience) {
			updates = append(updates, StatusUpdate{
				SurveyID: s.ID,
				IsActive: false,
			})
		}
	}

	return updates
}
