package vlm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// mergeMode selects how an Ensemble combines its members' successful
// results.
type mergeMode int

const (
	// mergeMajority takes the majority-vote panel list and per-field
	// median across every member: appropriate when every member is run
	// for corroboration and no one member is trusted over another.
	mergeMajority mergeMode = iota
	// mergeBestOf takes the single highest-confidence member's result
	// outright, untouched by the others: appropriate when two premium
	// providers are run and the better one should simply win.
	mergeBestOf
)

// Ensemble composes a vector of Providers into a single Provider, the
// fan-out/join variant referred to in the provider design notes: it holds no
// state beyond the member providers and never dispatches on a type switch.
type Ensemble struct {
	members []Provider
	mode    mergeMode
}

// NewEnsemble builds a majority-vote/median Ensemble over the given
// providers. At least one member is required; Analyze on an empty ensemble
// always errors.
func NewEnsemble(members ...Provider) *Ensemble {
	return &Ensemble{members: append([]Provider{}, members...), mode: mergeMajority}
}

// NewBestOfEnsemble builds an Ensemble that, instead of voting, simply
// returns the single highest-confidence member's result.
func NewBestOfEnsemble(members ...Provider) *Ensemble {
	return &Ensemble{members: append([]Provider{}, members...), mode: mergeBestOf}
}

// Tag identifies the ensemble for logging/cache purposes.
func (e *Ensemble) Tag() string { return "ensemble" }

// memberResult pairs one member's outcome with its index, for deterministic
// merge ordering independent of goroutine completion order.
type memberResult struct {
	idx int
	res AIAnalysisResult
	err error
}

// Analyze runs every member concurrently and joins their results: in
// mergeMajority mode, the panel count is decided by majority vote and the
// top-level confidence and grid pxPerMm are medians across members that
// succeeded (see mergeResults for the fields that are not); in mergeBestOf mode, the
// single highest-confidence member's result wins outright. It never blocks
// on a member that fails or whose ctx is cancelled; an ensemble call only
// fails when every member does.
func (e *Ensemble) Analyze(ctx context.Context, image Image) (AIAnalysisResult, error) {
	if len(e.members) == 0 {
		return AIAnalysisResult{}, fmt.Errorf("vlm: ensemble has no members")
	}

	results := make([]memberResult, len(e.members))
	var wg sync.WaitGroup
	for i, m := range e.members {
		wg.Add(1)
		go func(i int, m Provider) {
			defer wg.Done()
			res, err := m.Analyze(ctx, image)
			results[i] = memberResult{idx: i, res: res, err: err}
		}(i, m)
	}
	wg.Wait()

	var ok []AIAnalysisResult
	for _, r := range results {
		if r.err == nil {
			ok = append(ok, r.res)
		}
	}
	if len(ok) == 0 {
		return AIAnalysisResult{}, fmt.Errorf("vlm: all %d ensemble members failed", len(e.members))
	}

	if e.mode == mergeBestOf {
		return bestOfMerge(ok), nil
	}
	return mergeResults(ok), nil
}

// bestOfMerge returns the highest-confidence member's result untouched.
func bestOfMerge(results []AIAnalysisResult) AIAnalysisResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return best
}

// mergeResults combines successful ensemble member results by majority vote
// on panel count and median on the top-level confidence and the grid's
// pxPerMm. Panel bounds and every other field (calibration, labels, trace
// points, the rest of the grid) are copied from one member, the most
// confident among those with the winning panel count; they are not voted
// on or averaged.
func mergeResults(results []AIAnalysisResult) AIAnalysisResult {
	merged := AIAnalysisResult{
		ProviderTag: "ensemble",
		ModelTag:    "ensemble",
	}

	confidences := make([]float64, 0, len(results))
	pxPerMm := make([]float64, 0, len(results))
	for _, r := range results {
		confidences = append(confidences, r.Confidence)
		if r.Analysis.Grid.Detected {
			pxPerMm = append(pxPerMm, r.Analysis.Grid.PxPerMm)
		}
	}
	merged.Confidence = median(confidences)

	// Majority vote: the panel list from the most confident member whose
	// panel count is the mode (a tie between counts goes to the larger count).
	counts := map[int][]int{} // panel count -> member indices
	for i, r := range results {
		counts[len(r.Analysis.Panels)] = append(counts[len(r.Analysis.Panels)], i)
	}
	bestCount, bestIdxs := -1, []int{}
	for n, idxs := range counts {
		if len(idxs) > len(bestIdxs) || (len(idxs) == len(bestIdxs) && n > bestCount) {
			bestCount, bestIdxs = n, idxs
		}
	}
	chosen := bestIdxs[0]
	for _, i := range bestIdxs {
		if results[i].Confidence > results[chosen].Confidence {
			chosen = i
		}
	}
	merged.Analysis = results[chosen].Analysis
	merged.Analysis.Grid.PxPerMm = median(pxPerMm)

	return merged
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64{}, xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
