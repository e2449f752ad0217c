package score

import (
	"strings"

	"jobsift/internal/model"
)

type locationKind int

const (
	locUnknown locationKind = iota
	locRemote
	locHybrid
	locOnsite
)

var remoteTerms = []string{
	"remote", "fully remote", "work from home", "work from anywhere",
	"wfh", "distributed team", "anywhere in",
}

var hybridTerms = []string{
	"hybrid", "days in office", "days per week in", "flexible working",
	"partially remote",
}

var onsiteTerms = []string{
	"onsite", "on-site", "on site", "in office", "in-office",
	"office-based", "office based", "relocation", "in person", "in-person",
}

// classifyLocation buckets the combined location and description text.
// Remote terms are checked first, then hybrid, then onsite, so "remote or
// onsite" reads as remote.
func classifyLocation(text string) locationKind {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, remoteTerms):
		return locRemote
	case containsAny(lower, hybridTerms):
		return locHybrid
	case containsAny(lower, onsiteTerms):
		return locOnsite
	}
	return locUnknown
}

// locationScore maps the classification against the user's preferences into
// [-5.0, 1.0]. Exact preference match 1.0; acceptable-but-not-preferred 0.5;
// onsite with neither an onsite preference nor an allow-listed city is the
// -5.0 dealbreaker; unknown location under any explicit preference costs a
// -0.5 caution.
func locationScore(location, description string, prefs model.LocationPrefs) (float64, string) {
	text := location + " " + description
	kind := classifyLocation(text)
	cityHit := matchesCity(text, prefs.Cities)

	switch kind {
	case locRemote:
		switch {
		case prefs.Remote:
			return 1.0, "remote role matches your preference"
		case prefs.Hybrid:
			return 0.5, "remote role, you prefer hybrid"
		}
		return 0.0, ""
	case locHybrid:
		switch {
		case prefs.Hybrid:
			return 1.0, "hybrid role matches your preference"
		case prefs.Remote || prefs.Onsite:
			return 0.5, "hybrid role, close to your preference"
		}
		return 0.0, ""
	case locOnsite:
		switch {
		case prefs.Onsite && (cityHit || len(prefs.Cities) == 0):
			return 1.0, "onsite role matches your preference"
		case cityHit:
			return 0.5, "onsite, but in one of your preferred cities"
		}
		return -5.0, "onsite only, outside your locations"
	}
	if prefs.Any() {
		return -0.5, "location unclear"
	}
	return 0.0, ""
}

func matchesCity(text string, cities []string) bool {
	if len(cities) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, c := range cities {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && strings.Contains(lower, c) {
			return true
		}
	}
	return false
}
