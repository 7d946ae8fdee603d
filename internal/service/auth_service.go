package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/auth"
	"github.com/opsdesk/task-service/internal/domain"
	"github.com/opsdesk/task-service/internal/repository"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

// AuthService coordinates login flows.
type AuthService struct {
	workers  repository.WorkerRepository
	tokenMgr *auth.TokenManager
	clock    Clock
	logger   *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	WorkerRepo   repository.WorkerRepository
	TokenManager *auth.TokenManager
	Clock        Clock
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &AuthService{
		workers:  deps.WorkerRepo,
		tokenMgr: deps.TokenManager,
		clock:    clock,
		logger:   logger,
	}
}

// Login authenticates a worker, records the activity and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Worker, string, time.Time, error) {
	username = strings.TrimSpace(username)
	worker, err := s.workers.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(worker.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	now := s.clock.Now()
	if err := s.workers.TouchLastActive(ctx, worker.ID, now); err != nil {
		// a stale activity stamp only affects the inactivity sweep
		s.logger.Warn("record last activity", zap.String("worker_id", worker.ID), zap.Error(err))
	} else {
		worker.LastActiveAt = &now
	}

	token, exp, err := s.tokenMgr.GenerateToken(worker)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return worker, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
