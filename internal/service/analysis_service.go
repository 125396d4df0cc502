package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultMaxImageBytes = 10 << 20

// AnalysisResult is a finished analysis plus what the caller shows next to it.
type AnalysisResult struct {
	Analysis dom.Analysis
	Routine  []dom.RoutineDay
	Balance  int
	Charged  int
}

// AnalysisService runs billable hair analyses.
type AnalysisService struct {
	analyzer HairAnalyzer
	history  *HistoryService
	cost     int
	maxBytes int64

	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     clock
}

// AnalysisServiceConfig sets the price of one analysis and the upload limit.
type AnalysisServiceConfig struct {
	Cost          int
	MaxImageBytes int64
}

func NewAnalysisService(a HairAnalyzer, h *HistoryService, cfg AnalysisServiceConfig, m *metrics.Metrics, log logrus.FieldLogger) *AnalysisService {
	if cfg.Cost <= 0 {
		cfg.Cost = dom.DefaultAnalysisCost
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AnalysisService{
		analyzer: a,
		history:  h,
		cost:     cfg.Cost,
		maxBytes: cfg.MaxImageBytes,
		metrics:  m,
		log:      log.WithField("component", "analysis"),
		now:      nowUTC,
	}
}

// Cost is what one analysis debits.
func (s *AnalysisService) Cost() int { return s.cost }

// Analyze charges the ledger and classifies the photo. Nothing is charged for
// an invalid image; a failed classification is refunded.
func (s *AnalysisService) Analyze(ctx context.Context, ledger *CreditLedger, image []byte) (AnalysisResult, error) {
	mimeType, err := s.validate(image)
	if err != nil {
		s.metrics.Analysis("invalid_image")
		return AnalysisResult{}, err
	}

	if _, err := ledger.Debit(ctx, s.cost); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			s.metrics.Analysis("insufficient_credits")
		} else {
			s.metrics.Analysis("debit_failed")
		}
		return AnalysisResult{}, err
	}

	log := s.log.WithField("account_id", ledger.AccountID())
	res, err := s.analyzer.Analyze(ctx, image, mimeType)
	if err != nil {
		log.WithError(err).Error("hair analysis failed, refunding")
		if _, rerr := ledger.Credit(ctx, s.cost); rerr != nil {
			log.WithError(rerr).Error("refund after failed analysis failed")
		}
		s.metrics.Analysis("analyzer_failed")
		return AnalysisResult{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	a := dom.Analysis{
		ID:            uuid.NewString(),
		AccountID:     ledger.AccountID(),
		HairType:      res.HairType,
		Confidence:    res.Confidence,
		Probabilities: res.Probabilities,
		Summary:       res.Summary,
		Source:        dom.SourceGemini,
		CreatedAt:     s.now(),
	}
	if s.history != nil {
		if saved, err := s.history.Record(ctx, a); err != nil {
			log.WithError(err).Warn("save analysis to history failed")
		} else {
			a = saved
		}
	}

	s.metrics.Analysis("ok")
	return AnalysisResult{
		Analysis: a,
		Routine:  Routine(a.HairType),
		Balance:  ledger.Balance(),
		Charged:  s.cost,
	}, nil
}

func (s *AnalysisService) validate(image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}
	if int64(len(image)) > s.maxBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, s.maxBytes)
	}
	mt := mimetype.Detect(image)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s is not an image", ErrInvalidImage, mt.String())
	}
	return mt.String(), nil
}
