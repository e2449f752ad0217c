package score

import (
	"math"
	"strings"
)

type roleCategory struct {
	name     string
	keywords []string
}

// roleCategories is a fixed, ordered list. Iteration order matters: the fold
// below applies max for matches and min for mismatches in this order, so the
// last-applied category wins ties. Do not reorder without deciding what that
// means for simultaneous matches.
var roleCategories = []roleCategory{
	{"backend", []string{"backend", "back-end", "back end", "server-side", "api engineer"}},
	{"frontend", []string{"frontend", "front-end", "front end", "ui engineer", "web developer"}},
	{"fullstack", []string{"fullstack", "full-stack", "full stack"}},
	{"platform", []string{"platform", "devops", "sre", "site reliability", "infrastructure", "cloud engineer"}},
	{"data", []string{"data engineer", "data scientist", "machine learning", "analytics engineer", "ml engineer"}},
	{"mobile", []string{"mobile", "ios", "android", "react native", "flutter"}},
	{"embedded", []string{"embedded", "firmware", "rtos", "bare metal"}},
	{"security", []string{"security engineer", "appsec", "infosec", "penetration", "threat"}},
}

// descriptionHead bounds how much of the description role matching reads.
const descriptionHead = 500

// roleScore folds category signals into a single value in [-0.5, 1.0]:
// title match on a preferred category +1.0 (max), description-only match on a
// preferred category +0.5 (max), title match on a non-preferred category -0.5
// (min against the running value). No signal at all yields 0 and an empty
// note.
func roleScore(title, description string, preferredRoles []string) (float64, string) {
	titleL := strings.ToLower(title)
	head := strings.ToLower(description)
	if len(head) > descriptionHead {
		head = head[:descriptionHead]
	}
	prefSet := make(map[string]struct{}, len(preferredRoles))
	for _, r := range preferredRoles {
		prefSet[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	v := 0.0
	note := ""
	signal := false
	for _, cat := range roleCategories {
		inTitle := containsAny(titleL, cat.keywords)
		inDesc := containsAny(head, cat.keywords)
		if !inTitle && !inDesc {
			continue
		}
		_, preferred := prefSet[cat.name]
		switch {
		case inTitle && preferred:
			v = math.Max(v, 1.0)
			note = "strong role match: " + cat.name + " in title"
			signal = true
		case inDesc && preferred:
			v = math.Max(v, 0.5)
			if v == 0.5 {
				note = "role match: " + cat.name + " mentioned in description"
			}
			signal = true
		case inTitle && !preferred:
			v = math.Min(v, -0.5)
			note = "role mismatch: " + cat.name + " title, not in your preferred roles"
			signal = true
		}
	}
	if !signal {
		return 0, ""
	}
	return v, note
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
