// Package model contains domain models passed between layers.
package model

// Criterion names used by the model selector, in decision matrix column order.
const (
	CriterionAccuracy  = "accuracy"
	CriterionLatency   = "latency"
	CriterionSize      = "size"
	CriterionLanguages = "languages"
)

// CriterionNames lists the model selector criteria in column order.
func CriterionNames() []string {
	return []string{CriterionAccuracy, CriterionLatency, CriterionSize, CriterionLanguages}
}

// IsCriterion reports whether name is a model selector criterion.
func IsCriterion(name string) bool {
	_, ok := Metadata{}.Value(name)
	return ok
}

// Info is one entry of the model catalog.
type Info struct {
	ID        string   // hub identifier, e.g. "distilbert-base-uncased"
	Downloads int      // popularity as reported by the hub
	Likes     int      // likes as reported by the hub
	Tags      []string // hub tags
}

// Metadata holds the criterion values of a model.
type Metadata struct {
	Accuracy  float64 `json:"accuracy" koanf:"accuracy"`   // fraction in [0,1]
	Latency   float64 `json:"latency" koanf:"latency"`     // milliseconds
	Size      float64 `json:"size" koanf:"size"`           // megabytes
	Languages float64 `json:"languages" koanf:"languages"` // number of supported languages
}

// Value returns the value of the named criterion.
func (m Metadata) Value(criterion string) (float64, bool) {
	switch criterion {
	case CriterionAccuracy:
		return m.Accuracy, true
	case CriterionLatency:
		return m.Latency, true
	case CriterionSize:
		return m.Size, true
	case CriterionLanguages:
		return m.Languages, true
	default:
		return 0, false
	}
}

// Values returns the criterion values in CriterionNames order.
func (m Metadata) Values() []float64 {
	return []float64{m.Accuracy, m.Latency, m.Size, m.Languages}
}
