package cmd

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/lindesk/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "lindesk.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets masked",
				Action: runConfigShow,
			},
			{
				Name:      "set",
				Usage:     "Set a configuration value, e.g. lindesk config set slack.channel C0123",
				ArgsUsage: "KEY VALUE",
				Action:    runConfigSet,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.Init(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	masked := cfg.Masked()
	keys := make([]string, 0, len(masked))
	for key := range masked {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("%-20s %s\n", key, masked[key])
	}
	return nil
}

func runConfigSet(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: lindesk config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	configPath := c.String("config")
	if configPath == "" {
		configPath = "lindesk.toml"
	}

	if err := config.Set(configPath, key, value); err != nil {
		return err
	}

	fmt.Printf("Set %s in %s\n", key, configPath)
	return nil
}
