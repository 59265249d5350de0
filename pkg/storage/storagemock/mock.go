package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/homevolt/homevolt/pkg/storage"
	"github.com/homevolt/homevolt/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	args := m.Called(ctx, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) GetEstimatorState(ctx context.Context, entity string) (types.EstimatorState, error) {
	args := m.Called(ctx, entity)
	if len(args) > 0 {
		return args.Get(0).(types.EstimatorState), args.Error(1)
	}
	return types.EstimatorState{}, nil
}

func (m *MockDatabase) SetEstimatorState(ctx context.Context, entity string, state types.EstimatorState) error {
	args := m.Called(ctx, entity, state)
	return args.Error(0)
}

func (m *MockDatabase) ListEstimatorStates(ctx context.Context) (map[string]types.EstimatorState, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(map[string]types.EstimatorState), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
