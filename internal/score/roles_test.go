package score

import "testing"

func TestRoleScore_Folding(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		desc      string
		preferred []string
		want      float64
		wantNote  bool
	}{
		{
			name:      "preferred category in title",
			title:     "Senior Backend Engineer",
			preferred: []string{"backend"},
			want:      1.0,
			wantNote:  true,
		},
		{
			name:      "preferred category in description only",
			title:     "Software Engineer",
			desc:      "You will own our backend services.",
			preferred: []string{"backend"},
			want:      0.5,
			wantNote:  true,
		},
		{
			name:      "non-preferred category in title",
			title:     "Frontend Developer",
			preferred: []string{"backend"},
			want:      -0.5,
			wantNote:  true,
		},
		{
			name:      "later mismatch overrides earlier preferred match",
			title:     "Backend and Frontend Developer",
			preferred: []string{"backend"},
			want:      -0.5,
			wantNote:  true,
		},
		{
			name:      "title match beats description match",
			title:     "Platform Engineer",
			desc:      "Work across backend systems.",
			preferred: []string{"backend", "platform"},
			want:      1.0,
			wantNote:  true,
		},
		{
			name:  "no category signal",
			title: "Gardener",
			desc:  "Tend plants.",
			want:  0,
		},
		{
			name:  "category match without preferences in description only",
			title: "Engineer",
			desc:  "Our backend is in Go.",
			want:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, note := roleScore(tt.title, tt.desc, tt.preferred)
			if got != tt.want {
				t.Errorf("roleScore(%q) = %v, want %v", tt.title, got, tt.want)
			}
			if (note != "") != tt.wantNote {
				t.Errorf("roleScore(%q) note = %q, wantNote %v", tt.title, note, tt.wantNote)
			}
		})
	}
}
