package notify

import (
	"context"
	"log/slog"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

// Log writes notifications to a structured logger. It always reports permission as granted.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) RequestPermission(context.Context) challenge.Permission {
	return challenge.PermissionGranted
}

func (l *Log) Permission() challenge.Permission {
	return challenge.PermissionGranted
}

func (l *Log) Notify(ctx context.Context, n challenge.Notification) {
	l.logger.InfoContext(ctx, "notification", slog.String("title", n.Title), slog.String("body", n.Body))
}
