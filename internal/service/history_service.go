package service

import (
	"context"
	"strings"
	"time"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/repo"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const historyLimit = 100

type HistoryService struct {
	repo  repo.HistoryRepo
	cache HistoryCache
	sf    singleflight.Group
	now   clock
}

// NewHistoryService creates a HistoryService. If c is nil, caching is disabled.
func NewHistoryService(r repo.HistoryRepo, c HistoryCache) *HistoryService {
	return &HistoryService{repo: r, cache: c, now: time.Now}
}

// Record stores a finished analysis.
func (s *HistoryService) Record(ctx context.Context, a dom.Analysis) (dom.Analysis, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	if a.Source == "" {
		a.Source = dom.SourceGemini
	}
	out, err := s.repo.Create(ctx, a)
	if err != nil {
		return dom.Analysis{}, err
	}
	s.invalidateCache(ctx, a.AccountID)
	return out, nil
}

// RecordClient stores a classification made in the browser. A zero date means now.
func (s *HistoryService) RecordClient(ctx context.Context, accountID, result string, date time.Time) (dom.Analysis, error) {
	result = strings.TrimSpace(result)
	if result == "" {
		return dom.Analysis{}, ErrInvalidResult
	}
	return s.Record(ctx, dom.Analysis{
		AccountID: accountID,
		HairType:  result,
		Source:    dom.SourceClient,
		CreatedAt: date.UTC(),
	})
}

// List returns the account's history, newest first.
func (s *HistoryService) List(ctx context.Context, accountID string) ([]dom.Analysis, error) {
	if s.cache != nil {
		v, err, _ := s.sf.Do("history:"+accountID, func() (interface{}, error) {
			if list, err := s.cache.GetList(ctx, accountID); err == nil && list != nil {
				return list, nil
			}
			list, err := s.repo.ListByAccount(ctx, accountID, historyLimit)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetList(ctx, accountID, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]dom.Analysis), nil
	}
	return s.repo.ListByAccount(ctx, accountID, historyLimit)
}

func (s *HistoryService) invalidateCache(ctx context.Context, accountID string) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, accountID)
	}
}
