package apimodels

type AnalysisRequest struct {
	// Query is the natural language research question
	Query string `json:"query"`
}

type ClassifyRequest struct {
	Query string `json:"query"`
}
