package entities

// BatchResult is the per-item outcome of one element of a batch call.
// Batch operations are best-effort: each item is applied independently and
// failures never roll back earlier items. Callers can distinguish full,
// partial and zero success by inspecting the list.
type BatchResult struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Err   error  `json:"-"`
}

// BatchFailures counts the failed items in a batch result list.
func BatchFailures(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
