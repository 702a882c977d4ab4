package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lindesk/internal/config"
	"github.com/lindesk/internal/pipeline"
)

// TransferCommand returns the transfer command
func TransferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Analyze a support thread and transfer it to Linear and/or Slack",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Linear team key to create the issue in",
			},
			&cli.StringFlag{
				Name:    "channel",
				Aliases: []string{"c"},
				Usage:   "Slack channel id to post the summary to",
			},
			&cli.BoolFlag{
				Name:  "linear",
				Usage: "Create a Linear issue using the default project",
			},
			&cli.BoolFlag{
				Name:  "slack",
				Usage: "Post to Slack using the default channel",
			},
			&cli.StringFlag{
				Name:  "prompt",
				Usage: "Custom analysis prompt (replaces the notes banner)",
			},
			&cli.StringFlag{
				Name:  "codebase",
				Usage: "Path to a local codebase for the analysis to inspect",
			},
		},
		ArgsUsage: "THREAD_ID",
		Action:    runTransfer,
	}
}

func runTransfer(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: thread id")
	}
	threadID := c.Args().Get(0)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	project := c.String("project")
	if project == "" && c.Bool("linear") {
		project = cfg.Linear.Project
		if project == "" {
			return fmt.Errorf("no Linear project specified. Use --project option or set a default project")
		}
	}

	channel := c.String("channel")
	if channel == "" && c.Bool("slack") {
		channel = cfg.Slack.Channel
		if channel == "" {
			return fmt.Errorf("no Slack channel specified. Use --channel option or set a default channel")
		}
	}

	if project == "" && channel == "" {
		return fmt.Errorf("nothing to do: pass --project/--linear or --channel/--slack")
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Processing thread #%s...\n", threadID)

	result, err := runner.Run(context.Background(), threadID, pipeline.Options{
		Project:      project,
		Channel:      channel,
		CustomPrompt: c.String("prompt"),
		CodebasePath: c.String("codebase"),
	})
	if err != nil {
		return err
	}

	fmt.Println()
	if result.Issue != nil {
		fmt.Printf("Created Linear issue: %s - %s\n", result.Issue.Identifier, result.Issue.Title)
		fmt.Printf("Linear issue URL: %s\n", result.Issue.URL)
	}
	for _, action := range result.Actions {
		fmt.Println(action)
	}
	fmt.Printf("Referenced thread #%s (run %s)\n", threadID, result.RunID)

	return nil
}
