package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/homevolt/homevolt/pkg/log"
	"github.com/homevolt/homevolt/pkg/types"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. It persists settings and estimator state so the monitor can
// resume capacity tracking after a restart.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// GetSettings retrieves the dynamic configuration from the "config/settings"
// document. A missing document yields zero settings and version 0.
func (f *FirestoreProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	doc, err := f.client.Collection("config").Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "settings doc missing json")
		return types.Settings{}, 0, fmt.Errorf("settings document missing 'json' field: %w", err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "settings doc json not string")
		return types.Settings{}, 0, fmt.Errorf("settings 'json' field is not a string")
	}

	var s types.Settings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal settings json", slog.Any("err", err))
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings json: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the "config/settings"
// document. It stores the settings as a JSON string for portability.
func (f *FirestoreProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = f.client.Collection("config").Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetEstimatorState retrieves the persisted state for one estimator entity.
// Missing or unreadable records degrade to a zero state so a restart never
// fails on a bad record.
func (f *FirestoreProvider) GetEstimatorState(ctx context.Context, entity string) (types.EstimatorState, error) {
	doc, err := f.client.Collection("estimators").Doc(entity).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.EstimatorState{}, nil
		}
		return types.EstimatorState{}, fmt.Errorf("failed to fetch estimator doc %s: %w", entity, err)
	}

	state, ok := decodeEstimatorDoc(ctx, entity, doc.Data())
	if !ok {
		return types.EstimatorState{}, nil
	}
	return state, nil
}

// SetEstimatorState saves the state for one estimator entity.
func (f *FirestoreProvider) SetEstimatorState(ctx context.Context, entity string, state types.EstimatorState) error {
	jsonBytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal estimator state: %w", err)
	}

	_, err = f.client.Collection("estimators").Doc(entity).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to save estimator state %s: %w", entity, err)
	}
	return nil
}

// ListEstimatorStates retrieves all persisted estimator states keyed by
// entity. Unreadable records are skipped.
func (f *FirestoreProvider) ListEstimatorStates(ctx context.Context) (map[string]types.EstimatorState, error) {
	iter := f.client.Collection("estimators").Documents(ctx)
	defer iter.Stop()

	states := make(map[string]types.EstimatorState)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating estimator states: %w", err)
		}

		if state, ok := decodeEstimatorDoc(ctx, doc.Ref.ID, doc.Data()); ok {
			states[doc.Ref.ID] = state
		}
	}
	return states, nil
}

func decodeEstimatorDoc(ctx context.Context, entity string, data map[string]interface{}) (types.EstimatorState, bool) {
	jsonStr, ok := data["json"].(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "estimator doc json not string", slog.String("entity", entity))
		return types.EstimatorState{}, false
	}
	var state types.EstimatorState
	if err := json.Unmarshal([]byte(jsonStr), &state); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal estimator state", slog.String("entity", entity), slog.Any("err", err))
		return types.EstimatorState{}, false
	}
	return state, true
}
