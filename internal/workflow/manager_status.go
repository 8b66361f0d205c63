package workflow

import (
	"context"
	"sort"

	"faceswap/internal/jobs"
	"faceswap/internal/logging"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Active    []string
	LastError string
	LastJob   *jobs.Job
	JobCounts map[jobs.Status]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.Lock()
	active := make([]string, 0, len(m.active))
	for id := range m.active {
		active = append(active, id)
	}
	lastErr := m.lastErr
	lastJob := m.lastJob.Clone()
	m.mu.Unlock()
	sort.Strings(active)

	counts := make(map[jobs.Status]int, len(jobs.AllStatuses()))
	for _, status := range jobs.AllStatuses() {
		count, err := m.store.Count(status)
		if err != nil {
			m.logger.Warn("failed to count jobs",
				logging.String("status", string(status)),
				logging.Error(err),
			)
			continue
		}
		counts[status] = count
	}

	summary := StatusSummary{Active: active, LastJob: lastJob, JobCounts: counts}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *jobs.Job) {
	m.mu.Lock()
	m.lastJob = job.Clone()
	m.mu.Unlock()
}
