package storage

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/homevolt/homevolt/pkg/types"
)

// Database defines the interface for persisting settings and estimator state.
// Reads degrade to zero values when a record is missing or unreadable; the
// estimators treat that as "no prior state".
type Database interface {
	// Settings
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Estimator state, keyed by entity (types.EntityTotal or
	// types.ModuleEntity).
	GetEstimatorState(ctx context.Context, entity string) (types.EstimatorState, error)
	SetEstimatorState(ctx context.Context, entity string, state types.EstimatorState) error
	ListEstimatorStates(ctx context.Context) (map[string]types.EstimatorState, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemoryProvider()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
