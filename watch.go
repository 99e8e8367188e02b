// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spezifisch/mprisctl/config"
	"github.com/spezifisch/mprisctl/logger"
	"github.com/spezifisch/mprisctl/mpris"
	"github.com/spezifisch/mprisctl/remote"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) newWatchCmd() *cobra.Command {
	var plain, all bool
	cmd := &cobra.Command{
		Use:   "watch [player]",
		Short: "Follow a player's state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			conn, err := remote.Connect(a.cfg.Bus)
			if err != nil {
				return err
			}
			defer conn.Close()

			interactive := !all && !plain && !headlessMode

			// the interactive view owns the terminal, so everything logs
			// into its log page instead of stderr
			var log logger.LoggerInterface = a.logger
			var pageLog *logger.Logger
			if interactive {
				pageLog = a.pageLogger()
				log = pageLog
			}

			if a.cfg.MetricsListen != "" {
				stop := serveMetrics(a.cfg.MetricsListen, log)
				defer stop()
			}

			if all {
				return a.watchAll(ctx, conn)
			}

			tr, err := a.openPlayer(ctx, conn, args, log)
			if err != nil {
				return err
			}
			if !interactive {
				return a.watchPlain(ctx, tr)
			}
			return a.watchInteractive(ctx, tr, pageLog)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print events as log lines instead of the interactive view")
	cmd.Flags().BoolVar(&all, "all", false, "watch every player on the bus (implies --plain)")
	cmd.Flags().String("metrics-listen", "", "serve Prometheus metrics on this `address`, e.g. :9123")
	if err := a.v.BindPFlag(config.KeyMetricsListen, cmd.Flags().Lookup("metrics-listen")); err != nil {
		panic(err)
	}
	return cmd
}

// watchPlain logs every event until the player quits or ctx ends.
func (a *app) watchPlain(ctx context.Context, tr *remote.Transport) error {
	engine, err := mpris.NewEngine(ctx, tr, a.engineOptions(tr.Name())...)
	if err != nil {
		return err
	}

	log := a.logger.With("player", remote.ShortName(tr.Name()))
	state := engine.State()
	log.Zerolog().Info().
		Str("status", state.Status.String()).
		Str("track", state.Metadata.String()).
		Dur("position", engine.Position()).
		Msg("watching")

	for ev := range engine.All(ctx) {
		logEvent(log.Zerolog(), ev, engine.Position())
	}
	return nil
}

// watchAll runs one engine per player present at startup.
func (a *app) watchAll(ctx context.Context, conn *dbus.Conn) error {
	players, err := remote.ListPlayers(ctx, conn)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		return remote.ErrNoPlayer
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range players {
		g.Go(func() error {
			tr, err := remote.NewTransport(ctx, conn, name, a.logger)
			if errors.Is(err, mpris.ErrPeerGone) {
				// left before we got to it
				return nil
			}
			if err != nil {
				return err
			}
			err = a.watchPlain(ctx, tr)
			if errors.Is(err, mpris.ErrPeerGone) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

func logEvent(log *zerolog.Logger, ev mpris.Event, pos time.Duration) {
	var e *zerolog.Event
	if _, ok := ev.(mpris.ErrorEvent); ok {
		e = log.Warn()
	} else {
		e = log.Info()
	}
	e = e.Str("event", mpris.EventName(ev))

	switch ev := ev.(type) {
	case mpris.PlaybackStatusChanged:
		e = e.Str("status", ev.Status.String()).Dur("position", pos)
	case mpris.LoopStatusChanged:
		e = e.Str("loop", ev.Status.String())
	case mpris.ShuffleChanged:
		e = e.Bool("shuffle", ev.Shuffle)
	case mpris.VolumeChanged:
		e = e.Float64("volume", ev.Volume)
	case mpris.RateChanged:
		e = e.Float64("rate", ev.Rate)
	case mpris.TrackChanged:
		md := ev.Metadata
		e = e.Str("track_id", string(md.TrackID.OrEmpty())).
			Str("title", md.Title.OrEmpty()).
			Strs("artists", md.Artists.OrEmpty()).
			Str("album", md.Album.OrEmpty())
		if length, ok := md.Length.Get(); ok {
			e = e.Dur("length", length)
		}
	case mpris.Seeked:
		e = e.Dur("position", ev.Position)
	case mpris.ErrorEvent:
		e = e.Err(ev.Err)
	}
	e.Msg("")
}

// serveMetrics exposes the default Prometheus registry. The returned
// function shuts the server down.
func serveMetrics(addr string, log logger.LoggerInterface) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.PrintError("metrics", err)
		}
	}()
	log.Printf("metrics on http://%s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.PrintError("metrics shutdown", err)
		}
	}
}
