package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/sitefocus/internal/config"
	"github.com/fakeyudi/sitefocus/internal/engine"
	"github.com/fakeyudi/sitefocus/internal/observability"
	"github.com/fakeyudi/sitefocus/internal/server"
	"github.com/fakeyudi/sitefocus/internal/session"
	"github.com/fakeyudi/sitefocus/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking daemon until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		logger := observability.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
		metrics := observability.NewMetrics()

		store, err := session.Open(cfg.Store, cfg.DataDir)
		if err != nil {
			return fmt.Errorf("opening session store: %w", err)
		}
		defer session.Close(store)

		settings, err := config.DefaultSettings()
		if err != nil {
			return err
		}
		streamURL, err := settings.LoadStreamURL()
		if err != nil {
			logger.Warn().Err(err).Msg("unreadable settings, using default stream url")
			streamURL = stream.DefaultURL
		}

		eng := engine.New(engine.Deps{
			Store:    store,
			Settings: settings,
			Logger:   logger,
			Metrics:  metrics,
		})
		mgr := stream.NewManager(streamURL, eng,
			stream.WithLogger(logger),
			stream.WithMetrics(metrics),
		)
		eng.SetStream(mgr)

		ln, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
		}
		srv := &http.Server{
			Handler: server.NewRouter(&server.Deps{
				Engine:  eng,
				Store:   store,
				Logger:  logger,
				Metrics: metrics,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// The engine outlives the other workers so the final session is
		// flushed after the stream and bridge have stopped feeding it.
		engineCtx, stopEngine := context.WithCancel(context.Background())
		engineDone := make(chan struct{})
		go func() {
			defer close(engineDone)
			_ = eng.Run(engineCtx)
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return mgr.Run(gctx) })
		g.Go(func() error {
			err := settings.WatchStreamURL(gctx, func(url string) {
				if url == mgr.URL() {
					return
				}
				if err := mgr.SetURL(url); err != nil {
					logger.Warn().Err(err).Str("url", url).Msg("ignoring stream url from settings")
					return
				}
				logger.Info().Str("url", url).Msg("stream url changed on disk")
			})
			if err != nil {
				// The daemon keeps running without live reload.
				logger.Warn().Err(err).Msg("settings watcher stopped")
			}
			return nil
		})
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		logger.Info().Str("addr", ln.Addr().String()).Str("stream", streamURL).Str("store", cfg.Store).Msg("sitefocus daemon started")
		cmd.Printf("sitefocus listening on http://%s\n", ln.Addr())

		err = g.Wait()
		eng.ProcessSuspending()
		stopEngine()
		<-engineDone
		logger.Info().Msg("sitefocus daemon stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
