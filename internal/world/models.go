package world

import "time"

// Settlement is slow-moving aggregate state mutated only by the world tick.
// Resource counts never go below zero.
type Settlement struct {
	ID           int            `json:"id"`
	PopulationID string         `json:"population_id"`
	Name         string         `json:"name"`
	Level        int            `json:"level"`
	Resources    map[string]int `json:"resources"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NPC job values the tick flips between.
const (
	JobWorker = "worker"
	JobScout  = "scout"
)

// NPC is a background population inhabitant. ConvertedToCollectible is
// one-way: once true it never reverts.
type NPC struct {
	ID                     int        `json:"id"`
	PopulationID           string     `json:"population_id"`
	Job                    string     `json:"job"`
	Status                 string     `json:"status"`
	ConvertedToCollectible bool       `json:"converted_to_collectible"`
	MigratedAt             *time.Time `json:"migrated_at"`
}
