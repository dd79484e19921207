// Package outreach implements the cold-outreach eligibility rule: a brand
// gets one free email per influencer, may follow up once after a 48-hour
// cooldown, and is then blocked until the influencer replies.
package outreach

import (
	"fmt"
	"sort"
	"time"

	"github.com/brandreach/outreach-platform/internal/model"
)

const (
	// CooldownDuration is the default wait required between the first
	// outgoing message and the follow-up.
	CooldownDuration = 48 * time.Hour

	// MaxUnanswered is the default number of outgoing messages allowed
	// before a reply is required.
	MaxUnanswered = 2
)

const (
	reasonFirstMessage  = "First message allowed."
	reasonReplied       = "Influencer replied — messaging is unlocked."
	reasonCooldownOver  = "2 days passed — follow-up allowed."
	reasonBlocked       = "You already sent 2 emails without a reply. You can message again only after the influencer replies."
	reasonCooldownInFmt = "Wait %s before sending a follow-up (2-day rule)."
)

// Policy holds the tunable parameters of the eligibility rule.
type Policy struct {
	Cooldown      time.Duration
	MaxUnanswered int
}

// DefaultPolicy is the marketplace rule as shipped.
var DefaultPolicy = Policy{
	Cooldown:      CooldownDuration,
	MaxUnanswered: MaxUnanswered,
}

// Evaluate applies DefaultPolicy. See Policy.Evaluate.
func Evaluate(messages []model.Message, now time.Time) model.Eligibility {
	return DefaultPolicy.Evaluate(messages, now)
}

// Evaluate decides whether the brand may send another outgoing message on
// the thread right now. It is a pure function of the message history and
// now: no clocks, no I/O, no mutation of its input. The history may arrive
// in any order; it is normalized by created_at before the rules apply.
func (p Policy) Evaluate(messages []model.Message, now time.Time) model.Eligibility {
	if len(messages) == 0 {
		return allowed(reasonFirstMessage)
	}

	// A single reply permanently unlocks the thread, no matter how many
	// outgoing messages surround it.
	for _, m := range messages {
		if m.Direction == model.DirectionIncoming {
			return allowed(reasonReplied)
		}
	}

	outgoing := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.Direction == model.DirectionOutgoing {
			outgoing = append(outgoing, m)
		}
	}
	sort.SliceStable(outgoing, func(i, j int) bool {
		return outgoing[i].CreatedAt.Before(outgoing[j].CreatedAt)
	})

	switch {
	case len(outgoing) == 0:
		return allowed(reasonFirstMessage)
	case len(outgoing) < p.MaxUnanswered:
		// The cooldown runs from the most recent unanswered send. With the
		// default cap of 2 only one send can be pending here, so this is
		// the first message's timestamp.
		retryAfter := outgoing[len(outgoing)-1].CreatedAt.Add(p.Cooldown)
		if !now.Before(retryAfter) {
			return allowed(reasonCooldownOver)
		}
		return model.Eligibility{
			Status:     model.StatusCooldown,
			Reason:     fmt.Sprintf(reasonCooldownInFmt, FormatWait(retryAfter.Sub(now))),
			RetryAfter: &retryAfter,
		}
	default:
		return model.Eligibility{
			Status: model.StatusBlocked,
			Reason: reasonBlocked,
		}
	}
}

func allowed(reason string) model.Eligibility {
	return model.Eligibility{Status: model.StatusAllowed, Reason: reason}
}

// FormatWait renders a remaining wait as its coarsest two non-zero units
// among days, hours and minutes: "2d 3h", "5h 12m" or "42m". Negative
// durations are clamped to zero.
func FormatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
