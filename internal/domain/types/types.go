// Package types contains common types used across the application
package types

// RankedModel is one row of a model ranking as returned by POST /rank-models.
// JSON keys follow the column names the frontend and existing clients expect.
type RankedModel struct {
	Model            string  `json:"Model"`
	Accuracy         float64 `json:"Accuracy"`
	Latency          float64 `json:"Latency"`
	ModelSize        float64 `json:"Model Size"`
	LanguageCoverage float64 `json:"Language Coverage"`
	Score            float64 `json:"Topsis Score"`
	Rank             int     `json:"Rank"`
}

// RankedAlternative is one row of a generic matrix ranking.
type RankedAlternative struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
	Score  float64   `json:"score"`
	Rank   int       `json:"rank"`
}

// MatrixRanking is the response of POST /topsis.
type MatrixRanking struct {
	// Weights are the normalised weights actually applied.
	Weights []float64           `json:"weights"`
	Results []RankedAlternative `json:"results"`
}
