package postprocess

// Rank orders candidates by score descending, ties by (y, x) ascending, and
// keeps the first max of them. A max <= 0 keeps everything.
//
// Arguments:
//   - candidates: The candidates to rank. The slice is not modified.
//   - max: The keypoint budget.
//
// Returns:
//   - []Candidate: At most max candidates in rank order.
func Rank(candidates []Candidate, max int) []Candidate {
	sorted := sortCandidates(candidates)
	if max > 0 && len(sorted) > max {
		sorted = sorted[:max:max]
	}
	return sorted
}
