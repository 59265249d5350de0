package gateway

import (
	"context"

	"github.com/homevolt/homevolt/pkg/types"
)

// Gateway defines the interface for fetching raw documents from a Homevolt
// energy storage unit.
type Gateway interface {
	// Fetch retrieves the unit's JSON documents for one poll. The returned
	// payload always has Status and EMS set; Schedule and ErrorReport stay
	// nil when the unit does not expose those endpoints.
	Fetch(ctx context.Context) (types.Payload, error)
}
