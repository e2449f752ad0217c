// Package score is the deterministic fit scorer: pure functions of listing
// text and the user profile, no storage or network access. It never returns
// an error; degraded inputs degrade the score and the explanations instead.
package score

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"

	"jobsift/internal/model"
)

const (
	// baseline centers an all-neutral listing in the middle of the 0-10 range.
	baseline = 6.0
	maxScore = 10.0

	okMark   = "✓ "
	warnMark = "⚠ "

	maxExplanations = 5
	// notableLocation gates the location explanation: emit only when the
	// location signal's magnitude reaches this.
	notableLocation = 0.25
)

// DefaultWeights apply when the profile carries an all-zero weight vector.
var DefaultWeights = model.Weights{Keyword: 0.45, Role: 0.35, Location: 0.2}

// Input is the listing text the scorer reads.
type Input struct {
	Title       string
	Description string
	Location    string
}

// Result is the scorer's output: a fit score in [0, 10] rounded to one
// decimal, plus at most five ordered explanation strings.
type Result struct {
	Score        float64
	Explanations []string
	Keywords     []string
}

// Job scores one listing against the profile. A listing without a description
// short-circuits to score 0 with a single explanation; nothing else runs.
func Job(in Input, p model.Profile) Result {
	if strings.TrimSpace(in.Description) == "" {
		return Result{
			Score:        0,
			Explanations: []string{warnMark + "no description available, cannot score"},
		}
	}

	listingText := in.Title + " " + in.Description
	keywords := ExtractKeywords(listingText)
	kwScore, matched, missing := keywordScore(keywords, p.Resume, p.PreferredStacks)
	rScore, roleNote := roleScore(in.Title, in.Description, p.PreferredRoles)
	lScore, locNote := locationScore(in.Location, in.Description, p.Locations)

	w := p.Weights
	if w.IsZero() {
		w = DefaultWeights
	}
	// Weights.Similarity is reserved for a future embedding term; nothing
	// reads it here.
	raw := baseline + maxScore*(w.Keyword*kwScore+w.Role*rScore+w.Location*lScore)
	final := math.Round(clamp(raw, 0, maxScore)*10) / 10

	return Result{
		Score:        final,
		Explanations: explain(matched, missing, rScore, roleNote, lScore, locNote),
		Keywords:     matched,
	}
}

// All scores a batch independently; a panic scoring one listing yields a
// degraded result for that listing without stopping the rest.
func All(inputs []Input, p model.Profile) []Result {
	out := make([]Result, len(inputs))
	for i, in := range inputs {
		out[i] = scoreIsolated(in, p)
	}
	return out
}

func scoreIsolated(in Input, p model.Profile) (r Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r = Result{
				Score:        0,
				Explanations: []string{warnMark + "scoring failed for this listing"},
			}
		}
	}()
	return Job(in, p)
}

func explain(matched, missing []string, rScore float64, roleNote string, lScore float64, locNote string) []string {
	reasons := make([]string, 0, maxExplanations)
	if len(matched) > 0 {
		top := matched
		if len(top) > 3 {
			top = top[:3]
		}
		reasons = append(reasons, okMark+"matches your skills: "+strings.Join(top, ", "))
	}
	if roleNote != "" {
		mark := okMark
		if rScore < 0 {
			mark = warnMark
		}
		reasons = append(reasons, mark+roleNote)
	}
	if locNote != "" && math.Abs(lScore) >= notableLocation {
		mark := okMark
		if lScore < 0 {
			mark = warnMark
		}
		reasons = append(reasons, mark+locNote)
	}
	if len(missing) > 0 {
		gap := missing
		if len(gap) > 2 {
			gap = gap[:2]
		}
		reasons = append(reasons, warnMark+"not mentioned: "+strings.Join(gap, ", "))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, warnMark+"no strong signals either way")
	}
	if len(reasons) > maxExplanations {
		reasons = reasons[:maxExplanations]
	}
	return reasons
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ContentHash is the embedding-cache key for a piece of listing text. Kept
// next to the scorer so the future semantic term hashes text the same way.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
