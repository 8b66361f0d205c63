package jobstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"faceswap/internal/fileutil"
	"faceswap/internal/jobs"
	"faceswap/internal/services"
)

const (
	component  = "jobstore"
	recordExt  = ".json"
	recordMode = 0o644
)

// Store manages file-backed job records.
type Store struct {
	root   string
	mu     sync.Mutex
	rename func(oldpath, newpath string) error
	link   func(oldname, newname string) error
}

// Init creates the status partitions under root when absent and clears
// leftover temp files. It is safe to call repeatedly.
func Init(root string) error {
	root = strings.TrimSpace(root)
	if root == "" {
		return services.Wrap(services.ErrConfiguration, component, "init", "jobs path is empty", nil)
	}
	for _, status := range jobs.AllStatuses() {
		dir := filepath.Join(root, string(status))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, component, "init", fmt.Sprintf("create %s partition", status), err)
		}
		if _, err := fileutil.RemoveStaleTemp(dir); err != nil {
			return services.Wrap(services.ErrConfiguration, component, "init", fmt.Sprintf("clean %s partition", status), err)
		}
	}
	return nil
}

// Open initializes root and returns a Store bound to it.
func Open(root string) (*Store, error) {
	if err := Init(root); err != nil {
		return nil, err
	}
	return &Store{root: filepath.Clean(strings.TrimSpace(root)), rename: os.Rename, link: os.Link}, nil
}

// Root returns the persistence root.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) partition(status jobs.Status) string {
	return filepath.Join(s.root, string(status))
}

func (s *Store) recordPath(status jobs.Status, id string) string {
	return filepath.Join(s.partition(status), id+recordExt)
}

// Create persists a new drafted job. It fails when the id is malformed or
// already present in any partition.
func (s *Store) Create(job *jobs.Job) error {
	if job == nil {
		return services.InvalidArgument(component, "create", "job is nil")
	}
	if !jobs.ValidID(job.ID) {
		return services.InvalidArgument(component, "create", fmt.Sprintf("invalid job id %q", job.ID))
	}
	if job.Status != jobs.StatusDrafted {
		return services.InvalidState(component, "create", fmt.Sprintf("new jobs must be drafted, got %s", job.Status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if status, err := s.locate(job.ID); err == nil {
		return services.InvalidArgument(component, "create", fmt.Sprintf("job %s already exists in %s", job.ID, status))
	}
	data, err := encode(job)
	if err != nil {
		return err
	}
	if err := s.writeExclusive(s.recordPath(jobs.StatusDrafted, job.ID), data); err != nil {
		if errors.Is(err, os.ErrExist) {
			return services.InvalidArgument(component, "create", fmt.Sprintf("job %s already exists", job.ID))
		}
		return services.Wrap(services.ErrConfiguration, component, "create", "write job record", err)
	}
	return nil
}

// Read loads a job from whichever partition holds it.
func (s *Store) Read(id string) (*jobs.Job, error) {
	if !jobs.ValidID(id) {
		return nil, services.InvalidArgument(component, "read", fmt.Sprintf("invalid job id %q", id))
	}
	for _, status := range jobs.AllStatuses() {
		job, err := s.readAt(status, id)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return nil, services.NotFound(component, "read", fmt.Sprintf("job %s not found", id))
}

// Locate returns the status partition holding id.
func (s *Store) Locate(id string) (jobs.Status, error) {
	if !jobs.ValidID(id) {
		return "", services.InvalidArgument(component, "locate", fmt.Sprintf("invalid job id %q", id))
	}
	return s.locate(id)
}

func (s *Store) locate(id string) (jobs.Status, error) {
	for _, status := range jobs.AllStatuses() {
		if _, err := os.Stat(s.recordPath(status, id)); err == nil {
			return status, nil
		}
	}
	return "", services.NotFound(component, "locate", fmt.Sprintf("job %s not found", id))
}

// Update rewrites the record in the partition named by job.Status. It fails
// with a not-found error when the job is not currently in that partition.
func (s *Store) Update(job *jobs.Job) error {
	if job == nil {
		return services.InvalidArgument(component, "update", "job is nil")
	}
	if !jobs.ValidID(job.ID) {
		return services.InvalidArgument(component, "update", fmt.Sprintf("invalid job id %q", job.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.recordPath(job.Status, job.ID)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.NotFound(component, "update", fmt.Sprintf("job %s is not %s", job.ID, job.Status))
		}
		return services.Wrap(services.ErrConfiguration, component, "update", "stat job record", err)
	}
	data, err := encode(job)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, recordMode); err != nil {
		return services.Wrap(services.ErrConfiguration, component, "update", "write job record", err)
	}
	return nil
}

// Move relocates a job between status partitions with one rename. It fails
// with a not-found error when the job is not in from.
func (s *Store) Move(id string, from, to jobs.Status) error {
	if !jobs.ValidID(id) {
		return services.InvalidArgument(component, "move", fmt.Sprintf("invalid job id %q", id))
	}
	if _, ok := jobs.ParseStatus(string(from)); !ok {
		return services.InvalidArgument(component, "move", fmt.Sprintf("unknown status %q", from))
	}
	if _, ok := jobs.ParseStatus(string(to)); !ok {
		return services.InvalidArgument(component, "move", fmt.Sprintf("unknown status %q", to))
	}
	if from == to {
		return services.InvalidArgument(component, "move", fmt.Sprintf("job %s is already %s", id, to))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.recordPath(from, id)
	dst := s.recordPath(to, id)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.NotFound(component, "move", fmt.Sprintf("job %s is not %s", id, from))
		}
		return services.Wrap(services.ErrConfiguration, component, "move", "stat job record", err)
	}
	if _, err := os.Stat(dst); err == nil {
		return services.InvalidState(component, "move", fmt.Sprintf("job %s already present in %s", id, to))
	}
	if err := s.rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.NotFound(component, "move", fmt.Sprintf("job %s is not %s", id, from))
		}
		return services.Wrap(services.ErrConfiguration, component, "move", "rename job record", err)
	}
	return nil
}

// Delete removes the record for id from the given partition.
func (s *Store) Delete(id string, status jobs.Status) error {
	if !jobs.ValidID(id) {
		return services.InvalidArgument(component, "delete", fmt.Sprintf("invalid job id %q", id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(status, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.NotFound(component, "delete", fmt.Sprintf("job %s is not %s", id, status))
		}
		return services.Wrap(services.ErrConfiguration, component, "delete", "remove job record", err)
	}
	return nil
}

// List lazily yields jobs from the given partitions, or from every partition
// when none are named. Records are read one at a time in file name order;
// records that disappear mid-iteration are skipped.
func (s *Store) List(statuses ...jobs.Status) iter.Seq2[*jobs.Job, error] {
	if len(statuses) == 0 {
		statuses = jobs.AllStatuses()
	}
	return func(yield func(*jobs.Job, error) bool) {
		for _, status := range statuses {
			entries, err := os.ReadDir(s.partition(status))
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				if !yield(nil, services.Wrap(services.ErrConfiguration, component, "list", fmt.Sprintf("read %s partition", status), err)) {
					return
				}
				continue
			}
			for _, entry := range entries {
				name := entry.Name()
				if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
					continue
				}
				job, err := s.readAt(status, strings.TrimSuffix(name, recordExt))
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				if !yield(job, err) {
					return
				}
			}
		}
	}
}

// Count returns the number of records in a partition.
func (s *Store) Count(status jobs.Status) (int, error) {
	entries, err := os.ReadDir(s.partition(status))
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, component, "count", fmt.Sprintf("read %s partition", status), err)
	}
	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && !strings.HasPrefix(name, ".") && strings.HasSuffix(name, recordExt) {
			count++
		}
	}
	return count, nil
}

func (s *Store) readAt(status jobs.Status, id string) (*jobs.Job, error) {
	data, err := os.ReadFile(s.recordPath(status, id))
	if err != nil {
		return nil, err
	}
	var job jobs.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "read", fmt.Sprintf("decode job %s", id), err)
	}
	job.ID = id
	job.Status = status
	if job.Steps == nil {
		job.Steps = []jobs.Step{}
	}
	return &job, nil
}

func encode(job *jobs.Job) ([]byte, error) {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidArgument, component, "encode", fmt.Sprintf("encode job %s", job.ID), err)
	}
	return append(data, '\n'), nil
}

// writeExclusive publishes data at path only if nothing exists there yet.
// Filesystems without hard links fall back to an exclusive create.
func (s *Store) writeExclusive(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*"+fileutil.TempSuffix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, recordMode); err != nil {
		return err
	}
	err = s.link(tmpName, path)
	if err != nil && linkUnsupported(err) {
		return createExclusive(path, data)
	}
	return err
}

func linkUnsupported(err error) bool {
	return errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.EPERM) || errors.Is(err, unix.EXDEV)
}

func createExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, recordMode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
