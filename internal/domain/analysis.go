package domain

import "time"

// Analysis sources.
const (
	SourceGemini = "gemini"
	SourceClient = "client"
)

// HairProbability is one class score, in percent.
type HairProbability struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// Analysis is one entry of an account's history.
type Analysis struct {
	ID            string
	AccountID     string
	HairType      string
	Confidence    int
	Probabilities []HairProbability
	Summary       string
	Source        string
	CreatedAt     time.Time
}

// RoutineDay is one day of a weekly hair care routine.
type RoutineDay struct {
	Day      string   `json:"day"`
	Activity string   `json:"activity"`
	Products []string `json:"products"`
}
