package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/DingWH03/uchat-sub000/config"
)

const ServiceName = "uchat-server"

// Overridden at build time via -ldflags.
var version = "0.0.0"

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Chat backend: websocket push, REST surface, presence fan-out",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the chat server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			var (
				cfg *config.Config
				err error
			)
			if path := c.String("config_file"); path != "" {
				cfg, err = config.LoadConfigFile(path)
			} else {
				cfg, err = config.LoadConfig()
			}
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}
