package kitcheck

import (
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// GroundingScore is the fraction of grounded script items whose source
// reference resolves to a real in-range Ground-Truth item. No grounded items
// means nothing to violate, which scores 1.
func GroundingScore(k kit.Kit, gt groundtruth.GroundTruth) float64 {
	grounded := 0
	resolved := 0
	for _, it := range k.TeacherScript {
		if !it.IsGrounded {
			continue
		}
		grounded++
		if it.SourceRef != nil && it.SourceRef.InRange(gt) {
			resolved++
		}
	}
	if grounded == 0 {
		return 1
	}
	return float64(resolved) / float64(grounded)
}

// CoverageScore is the fraction of distinct Ground-Truth items referenced by
// a resolvable sourceRef anywhere in the kit. Counting is by set membership,
// so repeated references to the same item never push the score past 1.
func CoverageScore(k kit.Kit, gt groundtruth.GroundTruth) float64 {
	total := gt.TotalItems()
	if total == 0 {
		return 1
	}

	distinct := map[string]bool{}
	note := func(ref *kit.SourceRef) {
		if ref != nil && ref.InRange(gt) {
			distinct[ref.Key()] = true
		}
	}
	for _, it := range k.TeacherScript {
		note(it.SourceRef)
	}
	for _, q := range k.DiscussionQuestions {
		note(q.SourceRef)
	}

	score := float64(len(distinct)) / float64(total)
	if score > 1 {
		return 1
	}
	return score
}
