// Package arena declares the arena game models this client binds. Each type
// maps its fields to the external keys the sync service publishes; the
// matching manifest in manifests/arena.hcl pins the external schema.
package arena

import (
	"math/big"

	"github.com/vk/modelbind/internal/registry"
	"github.com/vk/modelbind/internal/schema"
)

// Player is the live state of one arena combatant.
type Player struct {
	ID        *big.Int   `model:"PlayerId"`
	HP        uint32     `model:"Health"`
	Pos       [2]float32 `model:"Position"`
	Status    LifeStatus `model:"Status"`
	Inventory []Item     `model:"Inventory"`

	// Local-only prediction state, untagged so it never syncs.
	Predicted [2]float32
}

// LifeStatus is the player's combat state as a tagged union.
type LifeStatus struct {
	Alive *AliveData   `variant:"Alive"`
	Dead  *schema.Unit `variant:"Dead"`
}

// AliveData is the payload of the Alive variant.
type AliveData struct {
	Shield uint32 `model:"Shield"`
}

// Item is one inventory slot.
type Item struct {
	Kind  string `model:"Kind"`
	Count uint32 `model:"Count"`
}

// Arena is the match-wide state.
type Arena struct {
	Round   uint32   `model:"Round"`
	Bounds  Bounds   `model:"Bounds"`
	Banner  string   `model:"Banner"`
	Purse   *big.Int `model:"Purse"`
	Victors []string `model:"Victors"`
}

// Bounds is the playable area as a min/max corner pair.
type Bounds struct {
	Min [2]float32 `tuple:"0"`
	Max [2]float32 `tuple:"1"`
}

// Module registers the arena models.
type Module struct{}

// Register implements app.Module.
func (m *Module) Register(r *registry.Registry) error {
	if err := r.Register("arena-Player", &Player{}); err != nil {
		return err
	}
	return r.Register("arena-Arena", &Arena{})
}
