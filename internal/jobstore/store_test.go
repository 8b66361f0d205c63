package jobstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"faceswap/internal/jobs"
	"faceswap/internal/jobstore"
	"faceswap/internal/services"
)

func openStore(t *testing.T) (*jobstore.Store, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "jobs")
	store, err := jobstore.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store, root
}

func draftedJob(id string) *jobs.Job {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	return &jobs.Job{
		ID:        id,
		Status:    jobs.StatusDrafted,
		Args:      jobs.Args{TargetPath: "t.mp4"},
		Steps:     []jobs.Step{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func partitionsHolding(t *testing.T, root, id string) []jobs.Status {
	t.Helper()
	var found []jobs.Status
	for _, status := range jobs.AllStatuses() {
		if _, err := os.Stat(filepath.Join(root, string(status), id+".json")); err == nil {
			found = append(found, status)
		}
	}
	return found
}

func TestInitIsIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "jobs")
	for range 3 {
		if err := jobstore.Init(root); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	for _, status := range jobs.AllStatuses() {
		info, err := os.Stat(filepath.Join(root, string(status)))
		if err != nil || !info.IsDir() {
			t.Fatalf("expected %s partition directory, err=%v", status, err)
		}
	}
}

func TestInitRejectsEmptyPath(t *testing.T) {
	if err := jobstore.Init("  "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestInitRemovesStaleTempFiles(t *testing.T) {
	_, root := openStore(t)
	stale := filepath.Join(root, "queued", ".abc.json.42.tmp")
	if err := os.WriteFile(stale, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := jobstore.Init(root); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale temp removed, err=%v", err)
	}
}

func TestCreateAndRead(t *testing.T) {
	store, root := openStore(t)
	job := draftedJob("job-1")
	if err := store.Create(job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Read("job-1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Status != jobs.StatusDrafted || got.Args.TargetPath != "t.mp4" {
		t.Fatalf("unexpected job %+v", got)
	}
	if !got.CreatedAt.Equal(job.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", got.CreatedAt, job.CreatedAt)
	}
	if held := partitionsHolding(t, root, "job-1"); !slices.Equal(held, []jobs.Status{jobs.StatusDrafted}) {
		t.Fatalf("expected record in drafted only, got %v", held)
	}
}

func TestCreateRejectsDuplicatesAndBadInput(t *testing.T) {
	store, _ := openStore(t)
	if err := store.Create(draftedJob("dup")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name   string
		job    *jobs.Job
		marker error
	}{
		{name: "duplicate", job: draftedJob("dup"), marker: services.ErrInvalidArgument},
		{name: "bad id", job: draftedJob("../escape"), marker: services.ErrInvalidArgument},
		{name: "nil", job: nil, marker: services.ErrInvalidArgument},
		{name: "not drafted", job: func() *jobs.Job {
			j := draftedJob("queued-one")
			j.Status = jobs.StatusQueued
			return j
		}(), marker: services.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Create(tt.job); !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
		})
	}
}

func TestCreateWithoutHardLinks(t *testing.T) {
	for _, errno := range []unix.Errno{unix.ENOTSUP, unix.EPERM} {
		t.Run(errno.Error(), func(t *testing.T) {
			store, root := openStore(t)
			jobstore.SetLinkFunc(store, func(oldname, newname string) error {
				return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: errno}
			})

			if err := store.Create(draftedJob("no-links")); err != nil {
				t.Fatalf("Create: %v", err)
			}
			got, err := store.Read("no-links")
			if err != nil || got.Args.TargetPath != "t.mp4" {
				t.Fatalf("expected readable record, got %+v err=%v", got, err)
			}
			if held := partitionsHolding(t, root, "no-links"); !slices.Equal(held, []jobs.Status{jobs.StatusDrafted}) {
				t.Fatalf("expected record in drafted only, got %v", held)
			}
			if err := store.Create(draftedJob("no-links")); !errors.Is(err, services.ErrInvalidArgument) {
				t.Fatalf("expected duplicate rejection, got %v", err)
			}
			entries, err := os.ReadDir(filepath.Join(root, string(jobs.StatusDrafted)))
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Fatalf("expected temp files cleaned up, found %d entries", len(entries))
			}
		})
	}
}

func TestCreateSurfacesOtherLinkErrors(t *testing.T) {
	store, root := openStore(t)
	jobstore.SetLinkFunc(store, func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: unix.EIO}
	})
	if err := store.Create(draftedJob("io")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected write failure, got %v", err)
	}
	if held := partitionsHolding(t, root, "io"); len(held) != 0 {
		t.Fatalf("expected no record, got %v", held)
	}
}

func TestReadMissingJob(t *testing.T) {
	store, _ := openStore(t)
	if _, err := store.Read("ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateRequiresCurrentPartition(t *testing.T) {
	store, _ := openStore(t)
	job := draftedJob("job-u")
	if err := store.Create(job); err != nil {
		t.Fatal(err)
	}

	job.Steps = append(job.Steps, jobs.Step{Index: 0, Processors: []string{"face_swapper"}, Outcome: jobs.OutcomePending})
	if err := store.Update(job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := store.Read("job-u")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Steps) != 1 || got.Steps[0].Processors[0] != "face_swapper" {
		t.Fatalf("expected step persisted, got %+v", got.Steps)
	}

	job.Status = jobs.StatusQueued
	if err := store.Update(job); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for wrong partition, got %v", err)
	}
}

func TestMoveChangesPartition(t *testing.T) {
	store, root := openStore(t)
	if err := store.Create(draftedJob("job-m")); err != nil {
		t.Fatal(err)
	}
	if err := store.Move("job-m", jobs.StatusDrafted, jobs.StatusQueued); err != nil {
		t.Fatalf("Move: %v", err)
	}

	got, err := store.Read("job-m")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != jobs.StatusQueued {
		t.Fatalf("expected queued from partition, got %s", got.Status)
	}
	if held := partitionsHolding(t, root, "job-m"); !slices.Equal(held, []jobs.Status{jobs.StatusQueued}) {
		t.Fatalf("expected record in queued only, got %v", held)
	}
}

func TestMoveFromWrongStatusIsNotFound(t *testing.T) {
	store, root := openStore(t)
	if err := store.Create(draftedJob("job-w")); err != nil {
		t.Fatal(err)
	}
	if err := store.Move("job-w", jobs.StatusQueued, jobs.StatusCompleted); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if held := partitionsHolding(t, root, "job-w"); !slices.Equal(held, []jobs.Status{jobs.StatusDrafted}) {
		t.Fatalf("expected record untouched, got %v", held)
	}
	if err := store.Move("job-w", jobs.StatusDrafted, jobs.StatusDrafted); !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for same-status move, got %v", err)
	}
}

func TestMoveCrashLeavesJobInExactlyOnePartition(t *testing.T) {
	crash := errors.New("simulated crash")
	tests := []struct {
		name   string
		rename func(oldpath, newpath string) error
		want   jobs.Status
	}{
		{
			name:   "crash before rename",
			rename: func(string, string) error { return crash },
			want:   jobs.StatusDrafted,
		},
		{
			name: "crash after rename",
			rename: func(oldpath, newpath string) error {
				if err := os.Rename(oldpath, newpath); err != nil {
					return err
				}
				return crash
			},
			want: jobs.StatusQueued,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, root := openStore(t)
			if err := store.Create(draftedJob("job-c")); err != nil {
				t.Fatal(err)
			}
			jobstore.SetRenameFunc(store, tt.rename)

			if err := store.Move("job-c", jobs.StatusDrafted, jobs.StatusQueued); err == nil {
				t.Fatal("expected simulated crash error")
			}

			held := partitionsHolding(t, root, "job-c")
			if len(held) != 1 || held[0] != tt.want {
				t.Fatalf("expected job only in %s, got %v", tt.want, held)
			}
			reopened, err := jobstore.Open(root)
			if err != nil {
				t.Fatal(err)
			}
			got, err := reopened.Read("job-c")
			if err != nil {
				t.Fatalf("Read after crash: %v", err)
			}
			if got.Status != tt.want {
				t.Fatalf("expected %s after reopen, got %s", tt.want, got.Status)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	store, _ := openStore(t)
	if err := store.Create(draftedJob("job-d")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("job-d", jobs.StatusQueued); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for wrong partition, got %v", err)
	}
	if err := store.Delete("job-d", jobs.StatusDrafted); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Read("job-d"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected job gone, got %v", err)
	}
}

func TestListFiltersAndIsLazy(t *testing.T) {
	store, root := openStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Create(draftedJob(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Move("b", jobs.StatusDrafted, jobs.StatusQueued); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "drafted", "notes.txt"), []byte("ignore"), 0o644); err != nil {
		t.Fatal(err)
	}

	var drafted []string
	for job, err := range store.List(jobs.StatusDrafted) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		drafted = append(drafted, job.ID)
	}
	if !slices.Equal(drafted, []string{"a", "c"}) {
		t.Fatalf("expected drafted [a c], got %v", drafted)
	}

	var all []string
	for job, err := range store.List() {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		all = append(all, job.ID)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs overall, got %v", all)
	}

	seen := 0
	for range store.List() {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("expected early stop after one job, got %d", seen)
	}

	count, err := store.Count(jobs.StatusDrafted)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 drafted, got %d err=%v", count, err)
	}
}

func TestListReportsCorruptRecords(t *testing.T) {
	store, root := openStore(t)
	if err := os.WriteFile(filepath.Join(root, "failed", "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var errs int
	for job, err := range store.List(jobs.StatusFailed) {
		if err != nil {
			errs++
			continue
		}
		t.Fatalf("unexpected job %+v", job)
	}
	if errs != 1 {
		t.Fatalf("expected one decode error, got %d", errs)
	}
}
