// gatekeeper/audit/service.go
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

type Service interface {
	LogDecision(ctx context.Context, d *pdp_model.Decision) error
	QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogDecision(ctx context.Context, d *pdp_model.Decision) error {
	log := FromDecision(uuid.NewString(), d)
	if err := s.repo.LogDecision(ctx, log); err != nil {
		return fmt.Errorf("failed to index decision %s: %w", log.ID, err)
	}
	return nil
}

func (s *service) QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error) {
	return s.repo.QueryDecisions(ctx, q)
}

// Subscribe indexes every decision published on eventType.
func Subscribe(bus *util.EventBus, eventType string, svc Service) {
	bus.Subscribe(eventType, func(ctx context.Context, e util.Event) error {
		d, ok := e.Payload.(*pdp_model.Decision)
		if !ok {
			logger.Error("Invalid decision payload", zap.Any("payload", e.Payload))
			return fmt.Errorf("invalid decision payload type: %T", e.Payload)
		}
		return svc.LogDecision(ctx, d)
	})
}
