package gatewaymock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/homevolt/homevolt/pkg/gateway"
	"github.com/homevolt/homevolt/pkg/types"
)

type MockGateway struct {
	mock.Mock
}

var _ gateway.Gateway = (*MockGateway)(nil)

func (m *MockGateway) Fetch(ctx context.Context) (types.Payload, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.Payload), args.Error(1)
	}
	return types.Payload{}, nil
}
