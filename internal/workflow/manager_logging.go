package workflow

import (
	"context"
	"log/slog"

	"faceswap/internal/logging"
	"faceswap/internal/services"
)

// jobLogger returns the manager logger stamped with the job id and any
// context fields.
func (m *Manager) jobLogger(ctx context.Context, jobID string) *slog.Logger {
	if _, ok := services.JobIDFromContext(ctx); !ok {
		ctx = services.WithJobID(ctx, jobID)
	}
	return logging.WithContext(ctx, m.logger)
}
