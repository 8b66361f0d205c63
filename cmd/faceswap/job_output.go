package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"faceswap/internal/history"
	"faceswap/internal/jobs"
)

// jobView is the list --json shape.
type jobView struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	Steps      int            `json:"steps"`
	Outcomes   map[string]int `json:"outcomes"`
	TargetPath string         `json:"target_path"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

func newJobView(job *jobs.Job) jobView {
	outcomes := make(map[string]int)
	for outcome, count := range job.CountOutcomes() {
		outcomes[string(outcome)] = count
	}
	return jobView{
		ID:         job.ID,
		Status:     string(job.Status),
		Steps:      len(job.Steps),
		Outcomes:   outcomes,
		TargetPath: job.Args.TargetPath,
		CreatedAt:  job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  job.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func buildJobListRows(list []*jobs.Job) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			job.ID,
			formatStatusLabel(string(job.Status)),
			fmt.Sprintf("%d", len(job.Steps)),
			displayPath(job.Args.TargetPath),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

func renderJob(cmd *cobra.Command, job *jobs.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:     %s\n", job.ID)
	fmt.Fprintf(out, "Status:  %s\n", formatStatusLabel(string(job.Status)))
	fmt.Fprintf(out, "Target:  %s\n", job.Args.TargetPath)
	if len(job.Args.SourcePaths) > 0 {
		fmt.Fprintf(out, "Sources: %s\n", strings.Join(job.Args.SourcePaths, ", "))
	}
	if job.Args.OutputPath != "" {
		fmt.Fprintf(out, "Output:  %s\n", job.Args.OutputPath)
	}
	fmt.Fprintf(out, "Created: %s\n", formatDisplayTime(job.CreatedAt))
	if len(job.Steps) == 0 {
		fmt.Fprintln(out, "No steps")
		return
	}
	printTable(out,
		[]column{right("#"), left("Processors"), left("Outcome"), left("Output"), left("Error")},
		buildStepRows(job.Steps),
	)
}

func buildStepRows(steps []jobs.Step) [][]string {
	rows := make([][]string, 0, len(steps))
	for _, step := range steps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", step.Index),
			strings.Join(step.Processors, ", "),
			formatStatusLabel(string(step.Outcome)),
			displayPath(step.Args.OutputPath),
			truncate(step.Error, 60),
		})
	}
	return rows
}

func buildRunRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", run.Attempt),
			formatStatusLabel(run.Status),
			run.AppContext,
			formatDisplayTime(run.StartedAt),
			duration,
			truncate(run.Error, 60),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02 15:04")
}

func displayPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "-"
	}
	return filepath.Base(path)
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
