package repo

import (
	"context"
	"errors"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/utils"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConfirmationExists is returned when a checkout session was already recorded.
var ErrConfirmationExists = errors.New("payment confirmation already recorded")

// PaymentRepo records applied checkout sessions.
type PaymentRepo interface {
	Exists(ctx context.Context, sessionID string) (bool, error)
	Create(ctx context.Context, c dom.PaymentConfirmation) (dom.PaymentConfirmation, error)
	ListByAccount(ctx context.Context, accountID string) ([]dom.PaymentConfirmation, error)
}

// PGPaymentRepo implements PaymentRepo with Postgres.
type PGPaymentRepo struct {
	db *pgxpool.Pool
}

// NewPGPaymentRepo returns a new PGPaymentRepo.
func NewPGPaymentRepo(db *pgxpool.Pool) *PGPaymentRepo {
	return &PGPaymentRepo{db: db}
}

// Exists reports whether the session id is already recorded.
func (r *PGPaymentRepo) Exists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_confirmations WHERE session_id = $1)`,
		sessionID,
	).Scan(&exists)
	return exists, err
}

// Create inserts a confirmation; a duplicate session id yields ErrConfirmationExists.
func (r *PGPaymentRepo) Create(ctx context.Context, c dom.PaymentConfirmation) (dom.PaymentConfirmation, error) {
	query := `
		INSERT INTO payment_confirmations (session_id, account_id, plan_id, credits, amount_minor, currency, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING session_id, account_id, plan_id, credits, amount_minor, currency, source, applied_at`
	var out dom.PaymentConfirmation
	err := r.db.QueryRow(ctx, query,
		c.SessionID, c.AccountID, c.PlanID, c.Credits, c.AmountMinor, c.Currency, c.Source,
	).Scan(&out.SessionID, &out.AccountID, &out.PlanID, &out.Credits, &out.AmountMinor,
		&out.Currency, &out.Source, &out.AppliedAt)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.PaymentConfirmation{}, ErrConfirmationExists
		}
		return dom.PaymentConfirmation{}, err
	}
	return out, nil
}

// ListByAccount returns an account's confirmations, newest first.
func (r *PGPaymentRepo) ListByAccount(ctx context.Context, accountID string) ([]dom.PaymentConfirmation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT session_id, account_id, plan_id, credits, amount_minor, currency, source, applied_at
		FROM payment_confirmations WHERE account_id = $1
		ORDER BY applied_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]dom.PaymentConfirmation, 0)
	for rows.Next() {
		var c dom.PaymentConfirmation
		if err := rows.Scan(&c.SessionID, &c.AccountID, &c.PlanID, &c.Credits, &c.AmountMinor,
			&c.Currency, &c.Source, &c.AppliedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
