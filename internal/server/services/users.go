// Package services contains the server-side business logic shared by the
// HTTP and gRPC transports and the admin CLI.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/dbx"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/config"
	"github.com/dmitrijs2005/usersvc/internal/server/mailer"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500

	// MaxVerificationAttempts wrong codes invalidate the pending code.
	MaxVerificationAttempts = 5

	verificationCodeDigits = 6
	mailTimeout            = 10 * time.Second
)

// PasswordHasher is implemented by auth.BcryptHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// UserService manages user records: registration with email verification,
// lookup, update, deletion and the admin operations.
type UserService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	hasher       PasswordHasher
	mailer       mailer.Mailer
	logger       logging.Logger
	storeTimeout time.Duration
	codeTTL      time.Duration
	now          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, ml mailer.Mailer, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:           db,
		repomanager:  m,
		hasher:       hasher,
		mailer:       ml,
		logger:       logger,
		storeTimeout: cfg.StoreTimeout,
		codeTTL:      cfg.VerificationCodeTTL,
		now:          time.Now,
	}
}

// Register creates a disabled account and mails it a verification code.
// A failed delivery is logged; the account is still created.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}
	code, err := common.MakeRandDigits(verificationCodeDigits)
	if err != nil {
		return nil, fmt.Errorf("%w: verification code: %v", common.ErrorInternal, err)
	}

	user := &models.User{
		ID:                    uuid.NewString(),
		UserName:              in.UserName,
		Email:                 in.Email,
		PasswordHash:          hash,
		Enabled:               false,
		VerificationCode:      code,
		VerificationExpiresAt: s.now().Add(s.codeTTL),
	}

	sctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err = s.repomanager.Users(s.db).Create(sctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", storeErr(err))
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.UserName)

	mctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := s.mailer.SendVerificationCode(mctx, user.Email, code, user.VerificationExpiresAt); err != nil {
		s.logger.Warn(ctx, "verification mail not sent", "user_id", user.ID, "error", err)
	}

	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	sctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.repomanager.Users(s.db).GetByID(sctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}

// List returns a page of users ordered by creation time. A non-positive
// limit means DefaultListLimit; limits above MaxListLimit are capped.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	limit, offset = normalizePage(limit, offset)

	sctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	users, err := s.repomanager.Users(s.db).List(sctx, limit, offset)
	if err != nil {
		return nil, storeErr(err)
	}
	return users, nil
}

// Update applies the non-nil fields of in to user id in one transaction.
// A new password replaces the stored hash wholesale.
func (s *UserService) Update(ctx context.Context, id string, in UpdateInput) (*models.User, error) {
	if in.UserName != nil {
		v := strings.TrimSpace(*in.UserName)
		in.UserName = &v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		in.Email = &v
	}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	var newHash string
	if in.Password != nil {
		h, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
		}
		newHash = h
	}

	var updated *models.User
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.UserName != nil {
			u.UserName = *in.UserName
		}
		if in.Email != nil {
			u.Email = *in.Email
		}
		if newHash != "" {
			u.PasswordHash = newHash
		}

		updated, err = repo.Update(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user updated", "user_id", id, "password_changed", newHash != "")
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	sctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repomanager.Users(s.db).Delete(sctx, id); err != nil {
		return storeErr(err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// Verify enables the account registered with email when code matches the
// pending, unexpired verification code. Every kind of mismatch is reported
// as common.ErrorValidation. After MaxVerificationAttempts wrong codes the
// pending code is dropped and the account can only be enabled by an admin.
func (s *UserService) Verify(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and code are required", common.ErrorValidation)
	}

	var (
		userID string
		failed bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetByEmail(ctx, email)
		if errors.Is(err, common.ErrorNotFound) {
			return errVerificationFailed
		}
		if err != nil {
			return err
		}
		if !u.VerificationPending() || !s.now().Before(u.VerificationExpiresAt) {
			return errVerificationFailed
		}
		if subtle.ConstantTimeCompare([]byte(u.VerificationCode), []byte(code)) != 1 {
			// The counter must be committed, so the transaction ends cleanly.
			failed = true
			n, err := repo.RecordFailedVerification(ctx, u.ID, MaxVerificationAttempts)
			if err != nil {
				return err
			}
			if n >= MaxVerificationAttempts {
				s.logger.Warn(ctx, "verification code invalidated", "user_id", u.ID, "attempts", n)
			}
			return nil
		}

		u.Enabled = true
		u.VerificationCode = ""
		u.VerificationExpiresAt = time.Time{}
		userID = u.ID
		_, err = repo.Update(ctx, u)
		return err
	})
	if err != nil {
		return err
	}
	if failed {
		return errVerificationFailed
	}

	s.logger.Info(ctx, "user verified", "user_id", userID)
	return nil
}

var errVerificationFailed = fmt.Errorf("%w: invalid or expired verification code", common.ErrorValidation)

// Enable marks username as enabled without a verification code.
func (s *UserService) Enable(ctx context.Context, username string) error {
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		u.Enabled = true
		u.VerificationCode = ""
		u.VerificationExpiresAt = time.Time{}
		_, err = repo.Update(ctx, u)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "user enabled", "username", username)
	return nil
}

// SetPassword replaces the password hash of username.
func (s *UserService) SetPassword(ctx context.Context, username, password string) error {
	if err := validatePassword(password); err != nil {
		return invalid(err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		_, err = repo.Update(ctx, u)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "username", username)
	return nil
}

func (s *UserService) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	sctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	return storeErr(dbx.WithTx(sctx, s.db, nil, fn))
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
