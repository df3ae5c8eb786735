package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bizadmin-auth/internal/model"
)

// ChallengeRepo persists OTP challenges. Password resets and email
// verifications are separate tables with the same columns.
type ChallengeRepo struct{ DB *sql.DB }

func NewChallengeRepo(db *sql.DB) *ChallengeRepo { return &ChallengeRepo{DB: db} }

const challengeColumns = "id, user_id, email, token, token_expires_at, otp_hash, otp_sent_at, otp_expires_at, used, used_at, created_at"

func challengeTable(p model.Purpose) (string, error) {
	switch p {
	case model.PurposePasswordReset:
		return "password_resets", nil
	case model.PurposeEmailVerification:
		return "email_verifications", nil
	}
	return "", fmt.Errorf("repository: unknown challenge purpose %q", p)
}

// Replace drops the user's unconsumed challenges and inserts c in one
// transaction. The user row is locked first so two concurrent requests for
// the same user serialize instead of both inserting.
func (r *ChallengeRepo) Replace(ctx context.Context, c model.Challenge) error {
	table, err := challengeTable(c.Purpose)
	if err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var locked uint64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ? FOR UPDATE", c.UserID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ? AND used = 0", c.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+table+" ("+challengeColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		c.ID, c.UserID, c.Email, c.Token, c.TokenExpiresAt, nullString(c.OTPHash),
		c.OTPSentAt, c.OTPExpiresAt, c.Used, c.UsedAt, c.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// FindLatest returns the live challenge of (userID, purpose), or the most
// recent consumed one when none is live. Consumed rows can share created_at
// with a newer live row, so used sorts first.
func (r *ChallengeRepo) FindLatest(ctx context.Context, userID uint64, purpose model.Purpose) (model.Challenge, error) {
	table, err := challengeTable(purpose)
	if err != nil {
		return model.Challenge{}, err
	}
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" FROM "+table+" WHERE user_id = ? ORDER BY used ASC, created_at DESC, id DESC LIMIT 1", userID)
	return scanChallenge(row, purpose)
}

// FindByToken returns the challenge carrying the correlation token.
func (r *ChallengeRepo) FindByToken(ctx context.Context, purpose model.Purpose, token string) (model.Challenge, error) {
	table, err := challengeTable(purpose)
	if err != nil {
		return model.Challenge{}, err
	}
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" FROM "+table+" WHERE token = ? LIMIT 1", token)
	return scanChallenge(row, purpose)
}

// UpdateOTP replaces the passcode hash and its timestamps on an unconsumed
// challenge.
func (r *ChallengeRepo) UpdateOTP(ctx context.Context, purpose model.Purpose, id uuid.UUID, otpHash string, sentAt, expiresAt time.Time) error {
	table, err := challengeTable(purpose)
	if err != nil {
		return err
	}
	return affectOne(r.DB.ExecContext(ctx,
		"UPDATE "+table+" SET otp_hash = ?, otp_sent_at = ?, otp_expires_at = ? WHERE id = ? AND used = 0",
		otpHash, sentAt, expiresAt, id))
}

// Consume sets the single-use flag and clears the passcode hash, then runs
// then with a context carrying the transaction. Repositories writing
// through that context join the transaction, so an error from then rolls
// the consume back. The row stays for auditing.
func (r *ChallengeRepo) Consume(ctx context.Context, purpose model.Purpose, id uuid.UUID, at time.Time, then func(context.Context) error) error {
	table, err := challengeTable(purpose)
	if err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := affectOne(tx.ExecContext(ctx,
		"UPDATE "+table+" SET used = 1, used_at = ?, otp_hash = NULL WHERE id = ? AND used = 0", at, id)); err != nil {
		return err
	}
	if then != nil {
		if err := then(withTx(ctx, tx)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanChallenge(row rowScanner, purpose model.Purpose) (model.Challenge, error) {
	var (
		c          model.Challenge
		tokenExp   sql.NullTime
		otpHash    sql.NullString
		otpSent    sql.NullTime
		otpExpires sql.NullTime
		usedAt     sql.NullTime
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Email, &c.Token, &tokenExp, &otpHash,
		&otpSent, &otpExpires, &c.Used, &usedAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Challenge{}, ErrNotFound
	}
	if err != nil {
		return model.Challenge{}, err
	}
	c.Purpose = purpose
	c.TokenExpiresAt = nullTimePtr(tokenExp)
	c.OTPHash = otpHash.String
	c.OTPSentAt = nullTimePtr(otpSent)
	c.OTPExpiresAt = nullTimePtr(otpExpires)
	c.UsedAt = nullTimePtr(usedAt)
	return c, nil
}

func affectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
