package kit

import "testing"

func TestShouldRebuild(t *testing.T) {
	fresh := &Kit{GroundTruthHash: "h1", GroundingScore: 0.95}

	cases := []struct {
		name     string
		existing *Kit
		hash     string
		want     bool
	}{
		{"no existing kit", nil, "h1", true},
		{"hash match, healthy", fresh, "h1", false},
		{"hash mismatch", fresh, "h2", true},
		{"needs review", &Kit{GroundTruthHash: "h1", GroundingScore: 0.95, NeedsReview: true}, "h1", true},
		{"low grounding", &Kit{GroundTruthHash: "h1", GroundingScore: 0.5}, "h1", true},
	}
	for _, c := range cases {
		if got := ShouldRebuild(c.existing, c.hash, 0.8); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}

	// Hash mismatch dominates every other field.
	perfect := &Kit{GroundTruthHash: "old", GroundingScore: 1.0}
	if !ShouldRebuild(perfect, "new", 0.8) {
		t.Fatalf("hash mismatch must force rebuild regardless of scores")
	}
}
