package models

import "math"

// ComputeStatistics derives project statistics from its task set.
// Only the server owns Statistics; this exists for the fake backend and tests.
func ComputeStatistics(tasks []Task) Statistics {
	s := Statistics{TotalTasks: len(tasks)}
	for _, t := range tasks {
		if t.Status == TaskDone {
			s.CompletedTasks++
		}
	}
	s.PendingTasks = s.TotalTasks - s.CompletedTasks
	if s.TotalTasks > 0 {
		pct := float64(s.CompletedTasks) / float64(s.TotalTasks) * 100
		s.CompletionPercentage = math.Round(pct*10) / 10
	}
	return s
}
