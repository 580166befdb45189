package notify

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

// DefaultDesktopCommand is the freedesktop notification helper.
const DefaultDesktopCommand = "notify-send"

// Desktop shows notifications through a desktop helper command. Permission is granted
// when the command is installed.
type Desktop struct {
	command  string
	logger   *slog.Logger
	lookPath func(string) (string, error)
	run      func(name string, args ...string) error

	mu         sync.Mutex
	permission challenge.Permission
}

// NewDesktop returns a desktop notifier using command (DefaultDesktopCommand when empty).
func NewDesktop(command string, logger *slog.Logger) *Desktop {
	if command == "" {
		command = DefaultDesktopCommand
	}
	return &Desktop{
		command:    command,
		logger:     logger,
		lookPath:   exec.LookPath,
		run:        runDetached,
		permission: challenge.PermissionDefault,
	}
}

func (d *Desktop) RequestPermission(_ context.Context) challenge.Permission {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.lookPath(d.command); err != nil {
		d.permission = challenge.PermissionDenied
	} else {
		d.permission = challenge.PermissionGranted
	}
	return d.permission
}

func (d *Desktop) Permission() challenge.Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}

func (d *Desktop) Notify(_ context.Context, n challenge.Notification) {
	go func() {
		if err := d.run(d.command, "--app-name=moveit", n.Title, n.Body); err != nil && d.logger != nil {
			d.logger.Debug("desktop notification failed", slog.Any("error", err))
		}
	}()
}

func runDetached(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}
