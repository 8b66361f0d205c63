package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"faceswap/internal/services"
)

const lockDirName = ".locks"

func lockDirFor(root string) string {
	return filepath.Join(root, lockDirName)
}

// runLock guards one job against concurrent runs in this and other processes.
type runLock struct {
	id   string
	lock *flock.Flock
	m    *Manager
}

func (m *Manager) acquireRunLock(id, operation string) (*runLock, error) {
	m.mu.Lock()
	if _, busy := m.active[id]; busy {
		m.mu.Unlock()
		return nil, services.InvalidState(component, operation, fmt.Sprintf("job %s is already running", id))
	}
	m.active[id] = struct{}{}
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
	}

	if err := os.MkdirAll(m.lockDir, 0o755); err != nil {
		release()
		return nil, services.Wrap(services.ErrConfiguration, component, operation, "create lock directory", err)
	}
	lock := flock.New(filepath.Join(m.lockDir, id+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		release()
		return nil, services.Wrap(services.ErrConfiguration, component, operation, "acquire run lock", err)
	}
	if !locked {
		release()
		return nil, services.InvalidState(component, operation, fmt.Sprintf("job %s is running in another process", id))
	}
	return &runLock{id: id, lock: lock, m: m}, nil
}

func (l *runLock) release() {
	if l == nil {
		return
	}
	_ = l.lock.Unlock()
	l.m.mu.Lock()
	delete(l.m.active, l.id)
	l.m.mu.Unlock()
}
