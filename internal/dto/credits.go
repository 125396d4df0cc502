package dto

// CreditsResponse is the caller's ledger as cached for their session.
type CreditsResponse struct {
	Balance      int  `json:"balance"`
	Initialized  bool `json:"initialized"`
	AnalysisCost int  `json:"analysis_cost"`
}
