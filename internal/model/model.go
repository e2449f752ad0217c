package model

import "time"

type Decision string

const (
	DecisionUnset    Decision = "unset"
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// ParseDecision validates a decision string coming in over the message boundary.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionUnset, DecisionAccepted, DecisionRejected:
		return Decision(s), true
	}
	return "", false
}

// Listing is a triaged job posting. ID is derived from the normalized source
// URL, so re-saving the same posting collapses to one row. FitScore is nil
// until the scorer has run.
type Listing struct {
	ID            string    `json:"id"`
	SourceURL     string    `json:"source_url"`
	NormalizedURL string    `json:"normalized_url"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Company       string    `json:"company"`
	Location      string    `json:"location"`
	FitScore      *float64  `json:"fit_score"`
	Explanations  []string  `json:"explanations"`
	Decision      Decision  `json:"decision"`
	Annotation    string    `json:"annotation"`
	Labels        []string  `json:"labels"`
	DiscoveredAt  time.Time `json:"discovered_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Weights controls how the three scoring signals combine. Similarity is
// reserved for a future embedding term and is never read by the scorer.
type Weights struct {
	Keyword    float64 `json:"keyword"`
	Role       float64 `json:"role"`
	Location   float64 `json:"location"`
	Similarity float64 `json:"similarity"`
}

// IsZero reports whether no weight has been set, in which case the scorer
// falls back to its defaults.
func (w Weights) IsZero() bool {
	return w.Keyword == 0 && w.Role == 0 && w.Location == 0
}

type LocationPrefs struct {
	Remote bool     `json:"remote"`
	Hybrid bool     `json:"hybrid"`
	Onsite bool     `json:"onsite"`
	Cities []string `json:"cities"`
}

// Any reports whether the user expressed any explicit location preference.
func (p LocationPrefs) Any() bool {
	return p.Remote || p.Hybrid || p.Onsite || len(p.Cities) > 0
}

// Profile is the user's singleton preference record.
type Profile struct {
	Resume          string        `json:"resume"`
	PreferredStacks []string      `json:"preferred_stacks"`
	PreferredRoles  []string      `json:"preferred_roles"`
	Locations       LocationPrefs `json:"locations"`
	Weights         Weights       `json:"weights"`
	ScoreThreshold  float64       `json:"score_threshold"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Preset is a named, reusable partial profile snapshot.
type Preset struct {
	ID        string    `json:"id"`
	Snapshot  Profile   `json:"snapshot"`
	CreatedAt time.Time `json:"created_at"`
}

// ApplyTo overlays the preset's non-empty fields onto a profile. Zero-valued
// fields in the snapshot leave the target untouched, so a preset can capture
// just a stack list or just location preferences.
func (p Preset) ApplyTo(target Profile) Profile {
	s := p.Snapshot
	if s.Resume != "" {
		target.Resume = s.Resume
	}
	if len(s.PreferredStacks) > 0 {
		target.PreferredStacks = s.PreferredStacks
	}
	if len(s.PreferredRoles) > 0 {
		target.PreferredRoles = s.PreferredRoles
	}
	if s.Locations.Any() {
		target.Locations = s.Locations
	}
	if !s.Weights.IsZero() {
		target.Weights = s.Weights
	}
	if s.ScoreThreshold != 0 {
		target.ScoreThreshold = s.ScoreThreshold
	}
	return target
}

// EmbeddingCacheEntry is forward-looking cache state for a semantic scorer
// that is not wired up yet. Only time-based eviction touches it today.
type EmbeddingCacheEntry struct {
	ContentHash  string    `json:"content_hash"`
	Vector       []float64 `json:"vector"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}
