package protocols

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
)

// Shared deterministic post-processing. Every helper takes and returns
// values; the candidate kit handed in is never mutated.

var phaseOrder = map[kit.Phase]int{
	kit.PhaseStart:   0,
	kit.PhaseCore:    1,
	kit.PhaseClosing: 2,
}

// recomputeScriptTimes reorders the script by phase (stable within a phase)
// and reassigns whole-minute offsets spread across each phase's budget, so a
// model that emitted sloppy timestamps still yields a playable script.
func recomputeScriptTimes(items []kit.ScriptItem, alloc kit.TimeAllocation) []kit.ScriptItem {
	out := append([]kit.ScriptItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return phaseOrder[out[i].Phase] < phaseOrder[out[j].Phase]
	})

	phaseStart := map[kit.Phase]int{
		kit.PhaseStart:   0,
		kit.PhaseCore:    alloc.Start,
		kit.PhaseClosing: alloc.Start + alloc.Core,
	}
	phaseBudget := map[kit.Phase]int{
		kit.PhaseStart:   alloc.Start,
		kit.PhaseCore:    alloc.Core,
		kit.PhaseClosing: alloc.Closing,
	}

	counts := map[kit.Phase]int{}
	for _, it := range out {
		counts[it.Phase]++
	}
	seen := map[kit.Phase]int{}
	for i := range out {
		p := out[i].Phase
		n := counts[p]
		if n == 0 {
			continue
		}
		step := 0
		if budget := phaseBudget[p]; n > 0 && budget > 0 {
			step = budget / n
		}
		out[i].Time = strconv.Itoa(phaseStart[p] + seen[p]*step)
		seen[p]++
	}
	return out
}

// backfillMediaSlides appends a slide for every extracted media asset not yet
// surfaced on any slide. Slide numbering continues after the highest existing
// slide.
func backfillMediaSlides(slides []kit.SlideAsset, gt groundtruth.GroundTruth) []kit.SlideAsset {
	out := append([]kit.SlideAsset(nil), slides...)
	used := map[string]bool{}
	maxSlide := 0
	for _, s := range out {
		if s.ImageURL != "" {
			used[strings.ToLower(s.ImageURL)] = true
		}
		if s.AnimationURL != "" {
			used[strings.ToLower(s.AnimationURL)] = true
		}
		if s.Slide > maxSlide {
			maxSlide = s.Slide
		}
	}
	for _, m := range gt.MediaAssets {
		if used[strings.ToLower(m.URL)] {
			continue
		}
		maxSlide++
		slide := kit.SlideAsset{Slide: maxSlide, Title: m.Caption}
		if slide.Title == "" {
			slide.Title = gt.Title
		}
		switch m.Type {
		case groundtruth.MediaAnimation, groundtruth.MediaVideo:
			slide.AnimationURL = m.URL
		default:
			slide.ImageURL = m.URL
		}
		out = append(out, slide)
	}
	return out
}

// usedRefKeys collects every source reference appearing anywhere in the kit.
func usedRefKeys(k kit.Kit) map[string]bool {
	used := map[string]bool{}
	for _, it := range k.TeacherScript {
		if it.SourceRef != nil {
			used[it.SourceRef.Key()] = true
		}
	}
	for _, q := range k.DiscussionQuestions {
		if q.SourceRef != nil {
			used[q.SourceRef.Key()] = true
		}
	}
	return used
}

// synthesizeDiscussionQuestions tops the question list up to min, preferring
// contrast pairs the model left unused and falling back to used pairs when
// every pair already appears in the script. Synthesized questions carry a
// real pair reference, so they stay within the grounding contract.
func synthesizeDiscussionQuestions(k kit.Kit, gt groundtruth.GroundTruth, min int) []kit.DiscussionQuestion {
	out := append([]kit.DiscussionQuestion(nil), k.DiscussionQuestions...)
	if len(out) >= min {
		return out
	}
	used := usedRefKeys(k)
	taken := map[int]bool{}
	add := func(skipUsed bool) {
		for i, p := range gt.CorrectIncorrectPairs {
			if len(out) >= min {
				return
			}
			if taken[i] {
				continue
			}
			ref := kit.SourceRef{Collection: groundtruth.CollectionPairs, Index: i}
			if skipUsed && used[ref.Key()] {
				continue
			}
			taken[i] = true
			out = append(out, kit.DiscussionQuestion{
				Question:  fmt.Sprintf("Waarom is %q beter dan %q?", p.Right, p.Wrong),
				SourceRef: &ref,
			})
		}
	}
	add(true)
	add(false)
	return out
}

// ensureRolePlay fills in a minimal role-play structure when the group-work
// section lacks one. Generic scaffolding only, no grounded claims.
func ensureRolePlay(gw kit.GroupWork, gt groundtruth.GroundTruth, duration int) kit.GroupWork {
	out := gw
	if out.Title == "" {
		out.Title = "Oefenen in tweetallen: " + gt.Title
	}
	if out.DurationMinutes <= 0 {
		out.DurationMinutes = duration
	}
	if out.GroupSize <= 0 {
		out.GroupSize = 2
	}
	if len(out.Roles) == 0 {
		out.Roles = []string{"uitvoerder", "observator"}
	}
	if len(out.Steps) == 0 {
		out.Steps = []string{
			"Verdeel de rollen.",
			"Speel de situatie na.",
			"Observator geeft feedback, wissel daarna van rol.",
		}
	}
	if out.Rubric == "" {
		out.Rubric = "Beoordeel op volledigheid en op correct taalgebruik uit de les."
	}
	return out
}

// dedupScript drops byte-duplicate script items, keeping first occurrence.
func dedupScript(items []kit.ScriptItem) []kit.ScriptItem {
	out := make([]kit.ScriptItem, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		key := string(it.Phase) + "|" + string(it.Action) + "|" + strings.ToLower(strings.TrimSpace(it.Content))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// dedupQuestions drops duplicate discussion questions by normalized text.
func dedupQuestions(qs []kit.DiscussionQuestion) []kit.DiscussionQuestion {
	out := make([]kit.DiscussionQuestion, 0, len(qs))
	seen := map[string]bool{}
	for _, q := range qs {
		key := strings.ToLower(strings.TrimSpace(q.Question))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

// scriptRefs returns, per collection, the indices referenced by resolvable
// script-item sourceRefs with the given action filter ("" = all actions).
func scriptRefs(k kit.Kit, gt groundtruth.GroundTruth, col groundtruth.Collection, action kit.Action) []int {
	var idxs []int
	for _, it := range k.TeacherScript {
		if action != "" && it.Action != action {
			continue
		}
		if it.SourceRef == nil || it.SourceRef.Collection != col {
			continue
		}
		if it.SourceRef.InRange(gt) {
			idxs = append(idxs, it.SourceRef.Index)
		}
	}
	return idxs
}
