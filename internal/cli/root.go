// Package cli implements the moveit terminal client. One process hosts one session.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/br-silvano/moveit-next/internal/challenge"
	"github.com/br-silvano/moveit-next/internal/notify"
	"github.com/br-silvano/moveit-next/internal/platform/envconfig"
	"github.com/br-silvano/moveit-next/internal/platform/logging"
	"github.com/br-silvano/moveit-next/internal/sound"
	"github.com/br-silvano/moveit-next/internal/store"
)

const (
	notifierDesktop = "desktop"
	notifierLog     = "log"
	notifierNone    = "none"
)

type options struct {
	dbPath      string
	scope       string
	seed        uint64
	name        string
	catalogFile string
	soundCmd    string
	assetsDir   string
	notifier    string
	logLevel    string
}

// NewRootCommand builds the moveit command tree. Flag defaults come from MOVEIT_* variables.
func NewRootCommand() *cobra.Command {
	seed, _ := envconfig.GetUint64("MOVEIT_SEED", 0)
	opts := &options{
		dbPath:      envconfig.Get("MOVEIT_DB", defaultDBPath()),
		scope:       envconfig.Get("MOVEIT_SCOPE", "local"),
		seed:        seed,
		name:        envconfig.Get("PROFILE_NAME", "Silvano Souza"),
		catalogFile: envconfig.Get("CHALLENGES_FILE", ""),
		soundCmd:    envconfig.Get("MOVEIT_SOUND_CMD", ""),
		assetsDir:   envconfig.Get("MOVEIT_ASSETS_DIR", "public"),
		notifier:    envconfig.Get("MOVEIT_NOTIFIER", notifierDesktop),
		logLevel:    envconfig.Get("LOG_LEVEL", "warn"),
	}

	root := &cobra.Command{
		Use:   "moveit",
		Short: "Level up by completing quick body and eye challenges",
		Long: `moveit keeps your level, experience and completed challenges in a local
SQLite file and hands out short challenges to do between focus cycles.

Run "moveit play" to start an interactive session.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", opts.dbPath, "SQLite file holding progress")
	flags.StringVar(&opts.scope, "scope", opts.scope, "profile the progress is stored under")
	flags.Uint64Var(&opts.seed, "seed", opts.seed, "seed for challenge selection (0 picks one from the clock)")
	flags.StringVar(&opts.name, "name", opts.name, "display name on the profile card")
	flags.StringVar(&opts.catalogFile, "catalog", opts.catalogFile, "JSON challenge catalog (bundled catalog when empty)")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level written to stderr")

	root.AddCommand(
		newProfileCommand(opts),
		newChallengesCommand(opts),
		newPlayCommand(opts),
	)
	return root
}

func newProfileCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the profile card with level and experience",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := opts.logger(cmd)

			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			db, err := store.OpenSQLite(opts.dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			machine, err := challenge.NewMachine(ctx, challenge.Options{
				Catalog: catalog,
				Store:   db.Store(opts.scope),
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProfile(opts.name, machine.Snapshot()))
			return nil
		},
	}
}

func newChallengesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "challenges",
		Short: "List the challenge catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCatalog(catalog.All()))
			return nil
		},
	}
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewTextLogger(cmd.ErrOrStderr(), o.logLevel)
}

func (o *options) loadCatalog() (*challenge.Catalog, error) {
	if o.catalogFile != "" {
		return challenge.LoadCatalogFile(o.catalogFile)
	}
	return challenge.LoadBundledCatalog()
}

func (o *options) newNotifier(logger *slog.Logger) (challenge.Notifier, error) {
	switch o.notifier {
	case notifierDesktop:
		return notify.NewDesktop("", logger), nil
	case notifierLog:
		return notify.NewLog(logger), nil
	case notifierNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown notifier %q (want desktop, log or none)", o.notifier)
	}
}

func (o *options) newPlayer(logger *slog.Logger) challenge.SoundPlayer {
	if o.soundCmd == "" {
		return sound.Nop{}
	}
	return sound.NewCommand(o.soundCmd, o.assetsDir, logger)
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "moveit.db"
	}
	return filepath.Join(dir, "moveit", "moveit.db")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
