package crafting

import "time"

// InventoryItem is one crafted or fused artifact held by an actor.
type InventoryItem struct {
	ID         int       `json:"id"`
	ActorID    string    `json:"actor_id"`
	ArtifactID int       `json:"artifact_id"`
	Shiny      bool      `json:"shiny"`
	ObtainedAt time.Time `json:"obtained_at"`
}

// FusionResult reports the outcome of fusing two artifacts.
type FusionResult struct {
	Item     *InventoryItem `json:"item"`
	Shiny    bool           `json:"shiny"`
	Proc     bool           `json:"proc"`
	Consumed []int          `json:"consumed"`
}
