package models

// ProbeResult reports worker-pool availability at one instant. It is
// advisory: by the time a caller acts on it, the pool may have changed.
type ProbeResult struct {
	Available   bool   `json:"available"`
	WorkerCount int    `json:"worker_count"`
	Reason      string `json:"reason"`
}

// ExecutionMode names the dispatch path a probe result implies.
func (p ProbeResult) ExecutionMode() string {
	if p.Available {
		return "worker"
	}
	return "immediate"
}
