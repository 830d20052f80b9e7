package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/dbx"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation           = "23505"
	pgInvalidTextRepresentation = "22P02"
)

const userColumns = `id, username, email, password_hash, enabled, verification_code, verification_expires_at, created_at, updated_at`

const (
	queryCreate = `INSERT INTO users (id, username, email, password_hash, enabled, verification_code, verification_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	queryGetByID       = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	queryGetByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	queryGetByEmail    = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	queryList          = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`

	queryUpdate = `UPDATE users
		SET username = $2, email = $3, password_hash = $4, enabled = $5,
		    verification_code = $6, verification_expires_at = $7,
		    verification_attempts = CASE WHEN $6::text IS NULL THEN 0 ELSE verification_attempts END,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	// The code is dropped on the attempt that reaches the limit.
	queryRecordFailedVerification = `UPDATE users
		SET verification_attempts = verification_attempts + 1,
		    verification_code = CASE WHEN verification_attempts + 1 >= $2 THEN NULL ELSE verification_code END,
		    verification_expires_at = CASE WHEN verification_attempts + 1 >= $2 THEN NULL ELSE verification_expires_at END,
		    updated_at = now()
		WHERE id = $1
		RETURNING verification_attempts`

	queryDelete = `DELETE FROM users WHERE id = $1`
)

// PostgresRepository implements Repository over dbx.DBTX, so it works the
// same on the pool and inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.db.QueryRowContext(ctx, queryCreate,
		user.ID, user.UserName, user.Email, user.PasswordHash, user.Enabled,
		nullString(user.VerificationCode), nullTime(user.VerificationExpiresAt),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, queryGetByID, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, queryGetByUsername, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, queryGetByEmail, email)
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, queryList, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	result := make([]*models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify(err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// Update writes every mutable column of user. The caller loads, modifies and
// saves the whole record, normally inside one transaction.
func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.db.QueryRowContext(ctx, queryUpdate,
		user.ID, user.UserName, user.Email, user.PasswordHash, user.Enabled,
		nullString(user.VerificationCode), nullTime(user.VerificationExpiresAt),
	).Scan(&user.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

// RecordFailedVerification counts a wrong verification code for id and
// returns the attempts made so far. Once maxAttempts is reached the pending
// code is cleared. The row lock taken by UPDATE serializes concurrent guesses.
func (r *PostgresRepository) RecordFailedVerification(ctx context.Context, id string, maxAttempts int) (int, error) {
	var attempts int
	if err := r.db.QueryRowContext(ctx, queryRecordFailedVerification, id, maxAttempts).Scan(&attempts); err != nil {
		return 0, classify(err)
	}
	return attempts, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, queryDelete, id)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u       models.User
		code    sql.NullString
		expires sql.NullTime
	)
	err := s.Scan(&u.ID, &u.UserName, &u.Email, &u.PasswordHash, &u.Enabled,
		&code, &expires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.VerificationCode = code.String
	if expires.Valid {
		u.VerificationExpiresAt = expires.Time
	}
	return &u, nil
}

// classify maps driver errors onto the common sentinels.
func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
		case pgInvalidTextRepresentation:
			// a malformed uuid cannot match any row
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	var (
		connErr *pgconn.ConnectError
		netErr  net.Error
	)
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.As(err, &connErr) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("db error: %w: %w", common.ErrStoreUnavailable, err)
	}

	return fmt.Errorf("db error: %w", err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
