package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lindesk/internal/api"
	"github.com/lindesk/internal/config"
	"github.com/lindesk/internal/pipeline"
)

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	port := cfg.Server.Port
	if override := c.Int("port"); override != 0 {
		port = override
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, runner)
	if path := c.String("config"); path != "" {
		server.SetConfigPath(path)
	}
	return server.Start(port)
}
