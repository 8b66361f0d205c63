package testsupport

import (
	"testing"

	"faceswap/internal/config"
	"faceswap/internal/history"
	"faceswap/internal/jobstore"
)

// MustOpenJobStore opens a jobstore.Store rooted at the config's jobs path.
func MustOpenJobStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg.Paths.JobsPath)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	return store
}

// MustOpenHistory opens the run journal for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
