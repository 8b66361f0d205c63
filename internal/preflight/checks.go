package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"faceswap/internal/config"
	"faceswap/internal/deps"
	"faceswap/internal/processors"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckSystemDeps evaluates the external binaries faceswap shells out to.
// Both the daemon and the CLI doctor command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := []deps.Status{deps.CheckFFmpeg(cfg.FFmpegBinary())}
	statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     "ffprobe",
			Description: "Used to inspect target media",
			Optional:    true,
		},
	})...)
	return statuses
}

// CheckProcessors loads each named processor and runs its pre-check.
func CheckProcessors(ctx context.Context, registry *processors.Registry, names []string) []Result {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		label := "Processor " + processors.DisplayName(name)
		procs, err := registry.Resolve([]string{name})
		if err != nil {
			results = append(results, Result{Name: label, Detail: err.Error()})
			continue
		}
		health := registry.PreCheck(ctx, procs[0])
		result := Result{Name: label, Passed: health.Ready, Detail: health.Detail}
		if health.Ready && result.Detail == "" {
			result.Detail = "ready"
		}
		results = append(results, result)
	}
	return results
}
