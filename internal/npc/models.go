package npc

import "time"

// Category tags what a template can be used for.
type Category string

const (
	CategorySpawn Category = "spawn"
	CategoryBoss  Category = "boss"
	CategoryRaid  Category = "raid"
)

func (c Category) String() string {
	return string(c)
}

func (c Category) IsValid() bool {
	return c == CategorySpawn || c == CategoryBoss || c == CategoryRaid
}

// Template is a catalog entry NPCs are instantiated from: spawn candidates
// and battle bosses.
type Template struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Rarity    string    `json:"rarity"`
	CreatedAt time.Time `json:"created_at"`
}
