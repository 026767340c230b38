package kit

// DefaultMinGrounding is the floor below which a cached kit is stale.
const DefaultMinGrounding = 0.8

// ShouldRebuild is the cache contract: a kit must be rebuilt when none
// exists, when the source text it was built from changed, when it was flagged
// for review, or when its grounding score fell below the configured minimum.
// A hash mismatch forces a rebuild regardless of any other field.
func ShouldRebuild(existing *Kit, currentSourceHash string, minGrounding float64) bool {
	if existing == nil {
		return true
	}
	if existing.GroundTruthHash != currentSourceHash {
		return true
	}
	if existing.NeedsReview {
		return true
	}
	if minGrounding <= 0 {
		minGrounding = DefaultMinGrounding
	}
	return existing.GroundingScore < minGrounding
}
