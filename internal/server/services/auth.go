package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/config"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/repositories/repomanager"
)

// AuthService turns credentials into a principal: a username and password
// into a token on login, and a token back into the current user on every
// authenticated request.
type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	hasher          PasswordHasher
	tokens          *auth.TokenService
	tokenTTL        time.Duration
	storeTimeout    time.Duration
	allowUnverified bool
	logger          logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, tokens *auth.TokenService, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:              db,
		repomanager:     m,
		hasher:          hasher,
		tokens:          tokens,
		tokenTTL:        cfg.TokenTTL,
		storeTimeout:    cfg.StoreTimeout,
		allowUnverified: cfg.AllowUnverifiedLogin,
		logger:          logger,
	}
}

// Login verifies username and password and issues a token. Unknown users,
// wrong passwords and disabled accounts all yield common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*auth.Token, error) {
	// Same normalization as Register.
	username = strings.TrimSpace(username)
	u, err := s.lookup(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		// Burn the same hashing time as a real comparison.
		s.hasher.Verify(password, s.dummy())
		s.logger.Warn(ctx, "login rejected", "username", username, "reason", "unknown user")
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		s.logger.Warn(ctx, "login rejected", "username", username, "reason", "bad password")
		return nil, common.ErrorUnauthorized
	}
	if !u.Enabled && !s.allowUnverified {
		s.logger.Warn(ctx, "login rejected", "username", username, "reason", "account disabled")
		return nil, common.ErrorUnauthorized
	}

	tok, err := s.tokens.Issue(u.UserName, map[string]any{"uid": u.ID}, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "login succeeded", "user_id", u.ID)
	return tok, nil
}

// Authenticate validates token and re-fetches its subject. The returned
// error wraps common.ErrorUnauthorized, and also the token error when the
// token itself was rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	u, err := s.lookup(ctx, claims.Subject)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: subject no longer exists", common.ErrorUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !u.Enabled && !s.allowUnverified {
		return nil, fmt.Errorf("%w: account disabled", common.ErrorUnauthorized)
	}
	return u, nil
}

func (s *AuthService) lookup(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, common.ErrorNotFound
	}

	sctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.repomanager.Users(s.db).GetByUsername(sctx, username)
	return u, storeErr(err)
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			s.logger.Error(context.Background(), "dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
