package diagnosis

// HealthScore computes the 0-100 portfolio health score from the issue list.
//
//	score = 100 - 10 per high issue - 3 per other issue
//
// The score is a heuristic: deterministic, clamped to [0, 100], and adding an
// issue can never raise it.
func HealthScore(issues []Issue) int {
	high := 0
	for _, issue := range issues {
		if issue.Severity == SeverityHigh {
			high++
		}
	}

	score := 100 - 10*high - 3*(len(issues)-high)
	if score < 0 {
		return 0
	}
	return score
}
