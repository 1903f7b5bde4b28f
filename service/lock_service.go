// gatekeeper/service/lock_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

//go:generate mockgen -destination=../test/service_mock/lock_service_mock.go -package=mock_service github.com/dev-mohitbeniwal/echo/gatekeeper/service ILockService

const (
	EventLockAdded   = "lock.added"
	EventLockRemoved = "lock.removed"
)

type ILockService interface {
	ListLocks(ctx context.Context, target string) ([]pdp_model.PolicyRecord, error)
	AddLock(ctx context.Context, r pdp_model.PolicyRecord, userID string) (*pdp_model.PolicyRecord, error)
	RemoveLock(ctx context.Context, r pdp_model.PolicyRecord, userID string) error
}

// LockStore is a legacy A11N store that can be written to.
type LockStore interface {
	PolicyRecords(ctx context.Context, target string) ([]pdp_model.PolicyRecord, error)
	AddLock(ctx context.Context, r pdp_model.PolicyRecord) error
	RemoveLock(ctx context.Context, r pdp_model.PolicyRecord) (bool, error)
}

// LockChange is published after a lock was added or removed.
type LockChange struct {
	Lock   pdp_model.PolicyRecord `json:"lock"`
	UserID string                 `json:"userId"`
}

// LockService administers the locks the gatekeeper reads for protected
// queries. Changes apply to the next evaluation; locks are never cached.
type LockService struct {
	store          LockStore
	validationUtil *util.ValidationUtil
	eventBus       *util.EventBus
}

func NewLockService(store LockStore, validationUtil *util.ValidationUtil, eventBus *util.EventBus) *LockService {
	return &LockService{
		store:          store,
		validationUtil: validationUtil,
		eventBus:       eventBus,
	}
}

func (s *LockService) ListLocks(ctx context.Context, target string) ([]pdp_model.PolicyRecord, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: target cannot be empty", sec_errors.ErrInvalidLockData)
	}
	records, err := s.store.PolicyRecords(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
	}
	if records == nil {
		records = []pdp_model.PolicyRecord{}
	}
	return records, nil
}

func (s *LockService) AddLock(ctx context.Context, r pdp_model.PolicyRecord, userID string) (*pdp_model.PolicyRecord, error) {
	r, err := s.normalize(r)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddLock(ctx, r); err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
	}

	s.eventBus.Publish(ctx, EventLockAdded, LockChange{Lock: r, UserID: userID})
	logger.Info("Lock added",
		zap.String("target", r.Target),
		zap.String("policy", string(r.Code)),
		zap.String("type", string(r.Type)),
		zap.String("userID", userID))
	return &r, nil
}

func (s *LockService) RemoveLock(ctx context.Context, r pdp_model.PolicyRecord, userID string) error {
	r, err := s.normalize(r)
	if err != nil {
		return err
	}
	removed, err := s.store.RemoveLock(ctx, r)
	if err != nil {
		return fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
	}
	if !removed {
		return sec_errors.ErrLockNotFound
	}

	s.eventBus.Publish(ctx, EventLockRemoved, LockChange{Lock: r, UserID: userID})
	logger.Info("Lock removed",
		zap.String("target", r.Target),
		zap.String("policy", string(r.Code)),
		zap.String("userID", userID))
	return nil
}

func (s *LockService) normalize(r pdp_model.PolicyRecord) (pdp_model.PolicyRecord, error) {
	r.Target = strings.TrimSpace(r.Target)
	r.Ref = strings.TrimSpace(r.Ref)
	r.Type = pdp_model.PolicyType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	if code, err := pdp_model.ParsePolicyCode(string(r.Code)); err == nil {
		r.Code = code
	}
	if err := s.validationUtil.ValidateLock(r); err != nil {
		return r, fmt.Errorf("%w: %v", sec_errors.ErrInvalidLockData, err)
	}
	return r, nil
}
