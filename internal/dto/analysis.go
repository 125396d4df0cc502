package dto

import "time"

type ProbabilityResponse struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

type AnalysisResponse struct {
	ID            string                `json:"id"`
	HairType      string                `json:"hair_type"`
	Confidence    int                   `json:"confidence"`
	Probabilities []ProbabilityResponse `json:"probabilities"`
	Analysis      string                `json:"analysis"`
	Source        string                `json:"source"`
	CreatedAt     time.Time             `json:"created_at"`
}

type RoutineDayResponse struct {
	Day      string   `json:"day"`
	Activity string   `json:"activity"`
	Products []string `json:"products"`
}

type RoutineResponse struct {
	HairType string               `json:"hair_type"`
	Days     []RoutineDayResponse `json:"days"`
}

// AnalyzeResponse is returned after a charged analysis.
type AnalyzeResponse struct {
	Analysis AnalysisResponse     `json:"analysis"`
	Routine  []RoutineDayResponse `json:"routine"`
	Balance  int                  `json:"balance"`
	Charged  int                  `json:"charged"`
}

type ListHistoryResponse struct {
	Items []AnalysisResponse `json:"items"`
}

// CreateHistoryRequest stores a classification made in the browser.
type CreateHistoryRequest struct {
	Result string `json:"result" binding:"required,max=200"`
	Date   Date   `json:"date"` // optional: "2026-02-19" or RFC3339
}
