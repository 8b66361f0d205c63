package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the FFmpeg binary used to write media outputs.
//
// An ffmpeg binary next to the running executable wins over the configured
// command, which is then resolved from PATH.
func CheckFFmpeg(command string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Required for reading and writing video frames",
	}

	if exe, err := os.Executable(); err == nil {
		if candidate, ok := sidecarCandidate(exe, "ffmpeg"); ok {
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Path = candidate
				result.Available = true
				return result
			}
		}
	}

	name := strings.TrimSpace(command)
	if name == "" {
		name = "ffmpeg"
	}
	result.Command = name
	if resolved, err := exec.LookPath(name); err == nil {
		result.Path = resolved
		result.Available = true
		return result
	}
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

func sidecarCandidate(executable, name string) (string, bool) {
	if executable == "" {
		return "", false
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(executable), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
