package paramspace

// MaxTaskCap bounds the number of tasks materialized for a job
// regardless of the Cartesian estimate.
const MaxTaskCap = 1000

// GeneratedTask is one row of the Cartesian product, paired with the
// throttle classification task generation assigns up front.
type GeneratedTask struct {
	Index     int
	Params    map[string]any
	Throttled bool
}

// Generate walks the normalized dimensions in lexicographic key order
// (keys in the order Normalize preserved, values in input order) and
// materializes up to MaxTaskCap tasks. Tasks whose index is ≥
// concurrencyLimit start throttled.
func Generate(n *Normalized, concurrencyLimit int) []GeneratedTask {
	total := 1
	for _, k := range n.Keys {
		total *= n.Len(k)
	}
	if total > MaxTaskCap {
		total = MaxTaskCap
	}

	out := make([]GeneratedTask, 0, total)
	indices := make([]int, len(n.Keys))

	for idx := 0; idx < total; idx++ {
		params := make(map[string]any, len(n.Keys))
		for pos, key := range n.Keys {
			values := n.Values[key]
			params[key] = values[indices[pos]]
		}
		out = append(out, GeneratedTask{
			Index:     idx,
			Params:    params,
			Throttled: idx >= concurrencyLimit,
		})

		// odometer increment, rightmost key varies fastest
		for pos := len(n.Keys) - 1; pos >= 0; pos-- {
			indices[pos]++
			if indices[pos] < n.Len(n.Keys[pos]) {
				break
			}
			indices[pos] = 0
		}
	}

	return out
}
