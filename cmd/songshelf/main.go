package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	runner := &Runner{logger: logger}

	app := &cli.Command{
		Name:    "songshelf",
		Usage:   "Personal music catalog with search, filters and a playback selection",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("SONGSHELF_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file before reading the configuration",
				Value: ".env",
			},
		},
		Before:   runner.Setup,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.WithError(err).Fatal("application error")
	}
}
