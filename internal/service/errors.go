package service

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrRemoteRead          = errors.New("profile store read failed")
	ErrRemoteWrite         = errors.New("profile store write failed")

	ErrInvalidImage      = errors.New("invalid image")
	ErrAnalysisFailed    = errors.New("analysis failed")
	ErrUnknownPlan       = errors.New("unknown plan")
	ErrPaymentUnverified = errors.New("payment could not be verified")
	ErrPaymentProvider   = errors.New("payment provider unavailable")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrInvalidResult     = errors.New("result is required")
)
