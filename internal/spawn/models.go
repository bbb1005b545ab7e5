package spawn

import "time"

// Event is a time-boxed, claimable occurrence offering 1..n candidate
// rewards. ClaimedBy transitions from unset to set exactly once; ExpiresAt is
// fixed at creation.
type Event struct {
	ID           int        `json:"id"`
	PopulationID string     `json:"population_id"`
	ChannelRef   string     `json:"channel_ref"`
	CandidateIDs []int      `json:"candidate_ids"`
	Kind         string     `json:"kind"`
	TriggeredBy  *string    `json:"triggered_by"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ClaimedBy    *string    `json:"claimed_by"`
	ClaimSlot    *int       `json:"claim_slot"`
	ClaimTime    *time.Time `json:"claim_time"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Active reports whether the event can still be claimed at the given instant.
func (e *Event) Active(now time.Time) bool {
	return e.ClaimedBy == nil && e.ExpiresAt.After(now)
}
