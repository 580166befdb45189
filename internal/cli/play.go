package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/br-silvano/moveit-next/internal/challenge"
	"github.com/br-silvano/moveit-next/internal/store"
)

const playHelp = `commands:
  start     receive a new challenge
  complete  complete the active challenge
  reset     give up the active challenge
  levelup   level up right away
  close     close the level-up modal
  status    show the profile again
  quit      end the session`

func newPlayCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start an interactive challenge session",
		Long: `Reads one command per line from stdin and redraws the profile after each one.

` + playHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := opts.logger(cmd)

			notifier, err := opts.newNotifier(logger)
			if err != nil {
				return err
			}
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
				Catalog:  catalog,
				Store:    db.Store(opts.scope),
				Notifier: notifier,
				Player:   opts.newPlayer(logger),
				Random:   challenge.NewRandom(opts.seed),
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			p := &player{machine: machine, name: opts.name, out: cmd.OutOrStdout()}
			return p.run(cmd, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&opts.soundCmd, "sound-cmd", opts.soundCmd, "audio player command run for each new challenge, e.g. paplay")
	cmd.Flags().StringVar(&opts.assetsDir, "assets-dir", opts.assetsDir, "directory sound assets are resolved against")
	cmd.Flags().StringVar(&opts.notifier, "notifier", opts.notifier, "notification backend: desktop, log or none")
	return cmd
}

type player struct {
	machine *challenge.Machine
	name    string
	out     io.Writer
}

func (p *player) run(cmd *cobra.Command, in io.Reader) error {
	ctx := cmd.Context()
	p.draw()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(p.out)
			return scanner.Err()
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "":
			continue
		case "start", "s":
			def := p.machine.StartNewChallenge(ctx)
			fmt.Fprintf(p.out, "%s: %s\n", challenge.NotificationTitle, challenge.NotificationBody(def.Amount))
		case "complete", "c":
			completion, ok := p.machine.CompleteChallenge(ctx)
			if !ok {
				fmt.Fprintln(p.out, "no active challenge")
				continue
			}
			fmt.Fprintf(p.out, "+%d xp\n", completion.Awarded)
		case "reset", "r":
			p.machine.ResetChallenge()
		case "levelup":
			p.machine.LevelUp(ctx)
		case "close":
			p.machine.CloseLevelUpModal()
		case "status":
		case "help", "?":
			fmt.Fprintln(p.out, playHelp)
			continue
		case "quit", "exit", "q":
			return nil
		default:
			fmt.Fprintf(p.out, "unknown command %q, type 'help'\n", scanner.Text())
			continue
		}
		p.draw()
	}
}

func (p *player) draw() {
	fmt.Fprintln(p.out, renderState(p.name, p.machine.Snapshot()))
}
