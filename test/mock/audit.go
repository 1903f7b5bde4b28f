// test/mock/audit.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/audit"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogDecision(ctx context.Context, d *pdp_model.Decision) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockAuditService) QueryDecisions(ctx context.Context, q audit.DecisionQuery) ([]audit.DecisionLog, error) {
	args := m.Called(ctx, q)
	logs, _ := args.Get(0).([]audit.DecisionLog)
	return logs, args.Error(1)
}
