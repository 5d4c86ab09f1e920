package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/rbhagat/legalease/internal/model"
)

type ResetTokenStore struct {
	db *sql.DB
}

func NewResetTokenStore(db *sql.DB) *ResetTokenStore {
	return &ResetTokenStore{db: db}
}

func scanResetToken(scanner interface{ Scan(...any) error }) (*model.ResetToken, error) {
	var rt model.ResetToken
	err := scanner.Scan(
		&rt.ID, &rt.Email, &rt.Token, &rt.Code, &rt.ExpiresAt, &rt.Used, &rt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

const resetTokenCols = `id, email, token, code, expires_at, used, created_at`

// generateCode returns a 6-digit numeric code (100000-999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue creates a fresh reset attempt for email with a 6-digit code, an opaque
// token, and a 15-minute expiry. All previous rows for the email are deleted
// first, so at most one attempt is redeemable per address at any time.
func (s *ResetTokenStore) Issue(email string) (*model.ResetToken, error) {
	_, err := s.db.Exec(`DELETE FROM reset_tokens WHERE email = ?`, email)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous tokens: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	token := uuid.New().String()

	result, err := s.db.Exec(
		`INSERT INTO reset_tokens (email, token, code, expires_at) VALUES (?, ?, ?, datetime('now', '+15 minutes'))`,
		email, token, code,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reset token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+resetTokenCols+` FROM reset_tokens WHERE id = ?`, id)
	return scanResetToken(row)
}

// GetByEmailAndCode returns the unused, unexpired attempt matching email and
// code, or nil. It does not mark anything used; the caller still has to
// present the opaque token to complete the reset.
func (s *ResetTokenStore) GetByEmailAndCode(email, code string) (*model.ResetToken, error) {
	row := s.db.QueryRow(
		`SELECT `+resetTokenCols+` FROM reset_tokens WHERE email = ? AND code = ? AND used = 0 AND expires_at > datetime('now')`,
		email, code,
	)
	rt, err := scanResetToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reset token by email and code: %w", err)
	}
	return rt, nil
}

// Consume atomically marks the attempt matching token as used and returns its
// email. A token can be consumed exactly once: the conditional update only
// transitions used=0 rows, so concurrent redemptions of the same token see at
// most one winner. Returns "" (no error) when the token is unknown, expired,
// or already used.
func (s *ResetTokenStore) Consume(token string) (string, error) {
	var email string
	err := s.db.QueryRow(
		`UPDATE reset_tokens SET used = 1 WHERE token = ? AND used = 0 AND expires_at > datetime('now') RETURNING email`,
		token,
	).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return email, nil
}

// DeleteExpired removes rows past expiry. Expired rows are already rejected by
// the lookup queries, so this is purely space reclamation.
func (s *ResetTokenStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM reset_tokens WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired reset tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
