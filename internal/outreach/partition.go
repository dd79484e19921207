package outreach

import (
	"time"

	"github.com/brandreach/outreach-platform/internal/model"
)

// ThreadLookup resolves an influencer ID to its thread history with the
// composing brand. A nil or empty result means no thread exists yet, which
// is a valid first-contact state.
type ThreadLookup func(influencerID string) []model.Message

// Partition applies DefaultPolicy. See Policy.Partition.
func Partition(influencerIDs []string, lookup ThreadLookup, now time.Time) model.Partition {
	return DefaultPolicy.Partition(influencerIDs, lookup, now)
}

// Partition evaluates each candidate recipient of a compose and splits them
// into sendable and policy-blocked sets, preserving the input order in both.
func (p Policy) Partition(influencerIDs []string, lookup ThreadLookup, now time.Time) model.Partition {
	part := model.Partition{}
	for _, id := range influencerIDs {
		result := p.Evaluate(lookup(id), now)
		if result.Sendable() {
			part.Allowed = append(part.Allowed, id)
			continue
		}
		part.Blocked = append(part.Blocked, model.RecipientEligibility{
			InfluencerID: id,
			Eligibility:  result,
		})
	}
	return part
}
