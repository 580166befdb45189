package sound

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command plays assets by running an external audio player in the background.
type Command struct {
	argv      []string
	assetsDir string
	logger    *slog.Logger
	run       func(name string, args ...string) error
}

// NewCommand builds a player from a command line such as "paplay" or "mpv --no-video".
// Asset paths are resolved under assetsDir.
func NewCommand(commandLine, assetsDir string, logger *slog.Logger) *Command {
	return &Command{
		argv:      strings.Fields(commandLine),
		assetsDir: assetsDir,
		logger:    logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (c *Command) Play(_ context.Context, asset string) {
	if len(c.argv) == 0 {
		return
	}
	path := filepath.Join(c.assetsDir, filepath.FromSlash(strings.TrimPrefix(asset, "/")))
	args := append(append([]string(nil), c.argv[1:]...), path)

	go func() {
		if err := c.run(c.argv[0], args...); err != nil && c.logger != nil {
			c.logger.Debug("sound playback failed", slog.String("asset", asset), slog.Any("error", err))
		}
	}()
}

// Nop discards every request.
type Nop struct{}

func (Nop) Play(context.Context, string) {}
