// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spezifisch/mprisctl/config"
	"github.com/spezifisch/mprisctl/logger"
	"github.com/spezifisch/mprisctl/mpris"
	"github.com/spezifisch/mprisctl/remote"
	"github.com/spf13/cobra"
)

// timeout for one-shot commands
const commandTimeout = 5 * time.Second

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           Name,
		Short:         "Watch and control media players over MPRIS",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "use config `file`")
	flags.String("bus", "session", "bus to look for players on (session or system)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Duration("idle-timeout", mpris.DefaultIdleTimeout, "pull the full player state after this long without signals")

	for key, name := range map[string]string{
		config.KeyBus:         "bus",
		config.KeyLogLevel:    "log-level",
		config.KeyIdleTimeout: "idle-timeout",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		a.newListCmd(),
		a.newStatusCmd(),
		a.newVolumeCmd(),
		a.newSeekCmd(),
		a.newLoopCmd(),
		a.newShuffleCmd(),
		a.newWatchCmd(),
		a.newDemoCmd(),
	)
	for _, c := range controlCommands {
		root.AddCommand(a.newControlCmd(c))
	}
	return root
}

// signalContext is cancelled on SIGINT and SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func (a *app) engineOptions(name string) []mpris.Option {
	return []mpris.Option{
		mpris.WithIdleTimeout(a.cfg.IdleTimeout),
		mpris.WithMaxConsecutiveErrors(a.cfg.MaxErrors),
		mpris.WithSeekTolerance(a.cfg.SeekTolerance),
		mpris.WithName(remote.ShortName(name)),
		mpris.WithLogger(a.logger.With("player", remote.ShortName(name))),
	}
}

// withPlayer connects to the bus and binds to the player selected by args
// (or the configured default).
func (a *app) withPlayer(ctx context.Context, args []string, fn func(*remote.Transport) error) error {
	conn, err := remote.Connect(a.cfg.Bus)
	if err != nil {
		return err
	}
	defer conn.Close()

	tr, err := a.openPlayer(ctx, conn, args, a.logger)
	if err != nil {
		return err
	}
	return fn(tr)
}

func (a *app) openPlayer(ctx context.Context, conn *dbus.Conn, args []string, log logger.LoggerInterface) (*remote.Transport, error) {
	want := a.cfg.Player
	if len(args) > 0 {
		want = args[0]
	}
	name, err := remote.ResolvePlayer(ctx, conn, want)
	if err != nil {
		return nil, err
	}
	return remote.NewTransport(ctx, conn, name, log)
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List media players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			conn, err := remote.Connect(a.cfg.Bus)
			if err != nil {
				return err
			}
			defer conn.Close()

			players, err := remote.ListPlayers(ctx, conn)
			if err != nil {
				return err
			}
			for _, name := range players {
				identity := ""
				if tr, err := remote.NewTransport(ctx, conn, name, a.logger); err == nil {
					identity, _ = mpris.NewPlayer(tr).Identity(ctx)
				}
				fmt.Fprintf(a.out, "%-30s %s\n", remote.ShortName(name), identity)
			}
			return nil
		},
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [player]",
		Short: "Print the state of a player",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			return a.withPlayer(ctx, args, func(tr *remote.Transport) error {
				engine, err := mpris.NewEngine(ctx, tr, a.engineOptions(tr.Name())...)
				if err != nil {
					return err
				}
				defer engine.Close()

				fmt.Fprint(a.out, formatStatus(tr.Name(), engine.State(), engine.Position()))
				return nil
			})
		},
	}
}

type controlCommand struct {
	use   string
	short string
	do    func(*mpris.Player, context.Context) error
}

var controlCommands = []controlCommand{
	{"play", "Start playback", (*mpris.Player).Play},
	{"pause", "Pause playback", (*mpris.Player).Pause},
	{"play-pause", "Toggle between playing and paused", (*mpris.Player).PlayPause},
	{"stop", "Stop playback", (*mpris.Player).Stop},
	{"next", "Skip to the next track", (*mpris.Player).Next},
	{"previous", "Skip to the previous track", (*mpris.Player).Previous},
}

func (a *app) newControlCmd(c controlCommand) *cobra.Command {
	return &cobra.Command{
		Use:   c.use + " [player]",
		Short: c.short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.control(cmd.Context(), args, func(ctx context.Context, p *mpris.Player) error {
				return c.do(p, ctx)
			})
		},
	}
}

func (a *app) control(parent context.Context, args []string, fn func(context.Context, *mpris.Player) error) error {
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()
	return a.withPlayer(ctx, args, func(tr *remote.Transport) error {
		return fn(ctx, mpris.NewPlayer(tr))
	})
}

func (a *app) newVolumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volume <0.0-1.0> [player]",
		Short: "Set the volume",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid volume %q", args[0])
			}
			return a.control(cmd.Context(), args[1:], func(ctx context.Context, p *mpris.Player) error {
				return p.SetVolume(ctx, volume)
			})
		},
	}
}

func (a *app) newSeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seek <offset> [player]",
		Short: "Seek relative to the current position, e.g. 30s or -- -1m",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("invalid offset %q", args[0])
			}
			return a.control(cmd.Context(), args[1:], func(ctx context.Context, p *mpris.Player) error {
				return p.Seek(ctx, offset)
			})
		},
	}
}

func (a *app) newLoopCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "loop <none|track|playlist> [player]",
		Short:     "Set the loop mode",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"none", "track", "playlist"},
		RunE: func(cmd *cobra.Command, args []string) error {
			loop, err := parseLoopArg(args[0])
			if err != nil {
				return err
			}
			return a.control(cmd.Context(), args[1:], func(ctx context.Context, p *mpris.Player) error {
				return p.SetLoopStatus(ctx, loop)
			})
		},
	}
}

func parseLoopArg(s string) (mpris.LoopStatus, error) {
	if s == "" {
		return mpris.LoopNone, fmt.Errorf("empty loop mode")
	}
	s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	return mpris.ParseLoopStatus(s)
}

func (a *app) newShuffleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shuffle <on|off> [player]",
		Short: "Turn shuffle on or off",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shuffle, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			return a.control(cmd.Context(), args[1:], func(ctx context.Context, p *mpris.Player) error {
				return p.SetShuffle(ctx, shuffle)
			})
		},
	}
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func (a *app) newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo [name]",
		Short: "Export a simulated player until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "demo"
			if len(args) > 0 {
				name = args[0]
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.runDemo(ctx, name)
		},
	}
}

func (a *app) runDemo(ctx context.Context, name string) error {
	conn, err := remote.Connect(a.cfg.Bus)
	if err != nil {
		return err
	}
	defer conn.Close()

	player := remote.NewDemoPlayer(remote.DefaultDemoTracks())
	mpp, err := remote.RegisterMprisPlayer(conn, name, player, a.logger)
	if err != nil {
		return fmt.Errorf("unable to register %s: %w", name, err)
	}
	defer mpp.Close()

	a.logger.Printf("demo player exported as %s", mpp.Name())

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			player.Tick()
			mpp.RefreshPosition()
		}
	}
}
