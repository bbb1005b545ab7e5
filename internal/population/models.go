package population

import "time"

// Population is one isolated group (a server or room) with its own channels,
// settlements, and spawn pool.
type Population struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	BroadcastChannel *string   `json:"broadcast_channel"`
	SystemChannel    *string   `json:"system_channel"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
