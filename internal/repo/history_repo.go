package repo

import (
	"context"
	"encoding/json"
	"fmt"

	dom "github.com/ramtunguturi36/hair/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HistoryRepo interface {
	Create(ctx context.Context, a dom.Analysis) (dom.Analysis, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]dom.Analysis, error)
}

type PGHistoryRepo struct {
	db *pgxpool.Pool
}

func NewPGHistoryRepo(db *pgxpool.Pool) *PGHistoryRepo {
	return &PGHistoryRepo{db: db}
}

func (r *PGHistoryRepo) Create(ctx context.Context, a dom.Analysis) (dom.Analysis, error) {
	probs, err := json.Marshal(a.Probabilities)
	if err != nil {
		return dom.Analysis{}, fmt.Errorf("encode probabilities: %w", err)
	}
	query := `
		INSERT INTO analyses (id, account_id, hair_type, confidence, probabilities, summary, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, account_id, hair_type, confidence, probabilities, summary, source, created_at`
	return scanAnalysis(r.db.QueryRow(ctx, query,
		a.ID, a.AccountID, a.HairType, a.Confidence, probs, a.Summary, a.Source, a.CreatedAt,
	))
}

func (r *PGHistoryRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]dom.Analysis, error) {
	query := `
		SELECT id, account_id, hair_type, confidence, probabilities, summary, source, created_at
		FROM analyses WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]dom.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func scanAnalysis(row pgx.Row) (dom.Analysis, error) {
	var (
		a     dom.Analysis
		probs []byte
	)
	if err := row.Scan(&a.ID, &a.AccountID, &a.HairType, &a.Confidence, &probs,
		&a.Summary, &a.Source, &a.CreatedAt); err != nil {
		return dom.Analysis{}, err
	}
	if len(probs) > 0 {
		if err := json.Unmarshal(probs, &a.Probabilities); err != nil {
			return dom.Analysis{}, fmt.Errorf("decode probabilities: %w", err)
		}
	}
	return a, nil
}
