package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/normanking/tutoravatar/internal/renderer"
	"github.com/normanking/tutoravatar/internal/server"
)

func runCommand() *cobra.Command {
	var headless, noServer bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the avatar with a window, or headless for a remote front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if noServer {
				cfg.Server.Enabled = false
			}
			if headless {
				cfg.Render.Enabled = false
			}

			a, err := newApp(cfg, nil)
			if err != nil {
				return err
			}
			defer a.Log.Close()
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.Runtime.SetContext(ctx)

			if cfg.Server.Enabled {
				srv := server.New(a, cfg.Server)
				if err := srv.Start(ctx); err != nil {
					return err
				}
			}

			logger := a.Log.Component("main")
			if cfg.Render.Enabled {
				if err := renderer.Init(); err != nil {
					logger.Warn().Err(err).Msg("Falling back to headless")
				} else {
					defer renderer.Terminate()

					r, err := renderer.New(cfg.Render, a.Log.Component("renderer"))
					if err != nil {
						logger.Warn().Err(err).Msg("Falling back to headless")
					} else {
						defer r.Shutdown()
						r.Loop(ctx, a.Scene, func(now time.Time) {
							a.Runtime.Frame(now)
						})
						return nil
					}
				}
			}

			logger.Info().Int("fps", cfg.Render.FPS).Msg("Running headless")
			return a.Runtime.Run(ctx, cfg.Render.FPS)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "do not open a window")
	cmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the websocket server")
	return cmd
}
