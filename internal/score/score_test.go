package score_test

import (
	"strings"
	"testing"

	"jobsift/internal/model"
	"jobsift/internal/score"
)

func baseProfile() model.Profile {
	return model.Profile{
		Resume:          "Python, Django, distributed systems",
		PreferredStacks: []string{"Kafka"},
		PreferredRoles:  []string{"Backend"},
		Locations:       model.LocationPrefs{Remote: true, Hybrid: true},
	}
}

func TestJob_ScoreAlwaysBounded(t *testing.T) {
	profiles := []model.Profile{
		{},
		baseProfile(),
		{Weights: model.Weights{Keyword: 100, Role: 100, Location: 100}},
		{Weights: model.Weights{Keyword: -50, Role: -50, Location: -50},
			Resume: "go kubernetes", PreferredRoles: []string{"platform"}},
		{Locations: model.LocationPrefs{Onsite: true, Cities: []string{"Berlin"}}},
	}
	inputs := []score.Input{
		{Title: "Senior Backend Engineer", Description: "Python and Django backend with Kafka. Remote OK.", Location: "Remote"},
		{Title: "Frontend Developer", Description: "React and CSS only.", Location: "Onsite in NYC"},
		{Title: "", Description: "word", Location: ""},
		{Title: strings.Repeat("backend frontend data ", 200), Description: strings.Repeat("x", 10000)},
		{Title: "??!!", Description: "\x00\x01 garbage �", Location: "\t\n"},
	}
	for _, p := range profiles {
		for _, in := range inputs {
			got := score.Job(in, p)
			if got.Score < 0 || got.Score > 10 {
				t.Errorf("Job(%q) score = %v, want within [0,10]", in.Title, got.Score)
			}
			if len(got.Explanations) == 0 || len(got.Explanations) > 5 {
				t.Errorf("Job(%q) returned %d explanations, want 1..5", in.Title, len(got.Explanations))
			}
		}
	}
}

func TestJob_EmptyDescriptionShortCircuits(t *testing.T) {
	cases := []score.Input{
		{Title: "Senior Backend Engineer", Description: "", Location: "Remote"},
		{Title: "Anything", Description: "   \n\t  "},
		{},
	}
	for _, in := range cases {
		got := score.Job(in, baseProfile())
		if got.Score != 0 {
			t.Errorf("Job(%+v) score = %v, want 0", in, got.Score)
		}
		if len(got.Explanations) != 1 {
			t.Errorf("Job(%+v) explanations = %v, want exactly one", in, got.Explanations)
		}
	}
}

func TestJob_StrongMatchScenario(t *testing.T) {
	in := score.Input{
		Title:       "Senior Backend Engineer",
		Description: "Python and Django backend with Kafka. Remote OK.",
		Location:    "Remote",
	}
	got := score.Job(in, baseProfile())
	if got.Score <= 7.0 {
		t.Fatalf("score = %v, want > 7.0 (explanations: %v)", got.Score, got.Explanations)
	}
	assertExplanation(t, got.Explanations, "matches your skills")
	assertExplanation(t, got.Explanations, "role match")
	assertExplanation(t, got.Explanations, "remote")
}

func TestJob_MismatchAndDealbreakerScenario(t *testing.T) {
	in := score.Input{
		Title:       "Frontend Developer",
		Description: "React and CSS only.",
		Location:    "Onsite in NYC",
	}
	got := score.Job(in, baseProfile())
	if got.Score >= 5.0 {
		t.Fatalf("score = %v, want < 5.0 (explanations: %v)", got.Score, got.Explanations)
	}
	assertExplanation(t, got.Explanations, "role mismatch")
	assertExplanation(t, got.Explanations, "onsite only")
}

func TestJob_RoundsToOneDecimal(t *testing.T) {
	in := score.Input{
		Title:       "Backend Engineer",
		Description: "Python and Django with Kafka.",
	}
	p := baseProfile()
	p.Weights = model.Weights{Keyword: 0.05}
	got := score.Job(in, p)
	rounded := float64(int(got.Score*10+0.5)) / 10
	if got.Score != rounded {
		t.Errorf("score %v is not rounded to one decimal", got.Score)
	}
}

func TestJob_NeutralListingCentersAtBaseline(t *testing.T) {
	// No keyword overlap, no role signal, no location preference: the fixed
	// baseline should land the score mid-range.
	in := score.Input{Title: "Gardener", Description: "Tend plants all day."}
	got := score.Job(in, model.Profile{})
	if got.Score != 6.0 {
		t.Errorf("neutral score = %v, want 6.0", got.Score)
	}
	if len(got.Explanations) != 1 {
		t.Errorf("neutral explanations = %v, want single placeholder", got.Explanations)
	}
}

func TestJob_ExplanationsCappedAtFive(t *testing.T) {
	p := model.Profile{
		Resume:          "python go java rust kubernetes terraform postgres redis",
		PreferredStacks: []string{"kafka", "docker"},
		PreferredRoles:  []string{"backend"},
		Locations:       model.LocationPrefs{Remote: true},
	}
	in := score.Input{
		Title:       "Backend Engineer",
		Description: "python go java kubernetes work. Remote.",
		Location:    "Remote",
	}
	got := score.Job(in, p)
	if len(got.Explanations) > 5 {
		t.Errorf("got %d explanations, want at most 5: %v", len(got.Explanations), got.Explanations)
	}
}

func TestAll_IsolatesItems(t *testing.T) {
	inputs := []score.Input{
		{Title: "Backend Engineer", Description: "Python and Go."},
		{Title: "No description job"},
		{Title: "Frontend", Description: "React."},
	}
	got := score.All(inputs, baseProfile())
	if len(got) != len(inputs) {
		t.Fatalf("All returned %d results, want %d", len(got), len(inputs))
	}
	for i, r := range got {
		if r.Score < 0 || r.Score > 10 {
			t.Errorf("result %d score = %v, out of bounds", i, r.Score)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "phrases survive tokenization",
			text: "We build distributed systems and do machine learning.",
			want: []string{"machine learning", "distributed systems"},
		},
		{
			name: "tokens deduplicated",
			text: "python python PYTHON kafka",
			want: []string{"python", "kafka"},
		},
		{
			name: "stop words and short tokens dropped",
			text: "a to in is go",
			want: []string{"go"},
		},
		{
			name: "empty input",
			text: "   ",
			want: nil,
		},
		{
			name: "punctuation separated",
			text: "Python/Django, Kafka; PostgreSQL.",
			want: []string{"python", "django", "kafka", "postgresql"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := score.ExtractKeywords(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("ExtractKeywords(%q) = %v, want %v", tc.text, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("keyword %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func assertExplanation(t *testing.T, explanations []string, fragment string) {
	t.Helper()
	for _, e := range explanations {
		if strings.Contains(strings.ToLower(e), fragment) {
			return
		}
	}
	t.Errorf("no explanation containing %q in %v", fragment, explanations)
}
