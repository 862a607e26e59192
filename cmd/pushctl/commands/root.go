// Package commands implements the pushctl command tree: a small developer
// tool for exercising the SDK against a backend from the shell.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/pushkit"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "pushctl",
		Usage: "push token registration client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "push--api-key",
				Usage: "backend API key",
			},
			&cli.StringFlag{
				Name:  "push--environment",
				Usage: "backend environment (release|releaseCandidate|developer|custom)",
			},
			&cli.StringFlag{
				Name:  "push--base-url",
				Usage: "endpoint root for the custom environment",
			},
			&cli.StringFlag{
				Name:  "push--storage--type",
				Usage: "token storage backend (keyring|file|memory)",
			},
			&cli.StringFlag{
				Name:  "push--storage--dir",
				Usage: "state directory for file storage",
			},
			&cli.StringFlag{
				Name:  "push--device--platform",
				Usage: "platform reported to the backend",
			},
			&cli.BoolFlag{
				Name:  "push--debug-logging",
				Usage: "log requests and responses",
			},
		},
		Commands: []*cli.Command{
			registerCommand(),
			unregisterCommand(),
			subscribeCommand(),
			unsubscribeCommand(),
			statusCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "register a platform push token",
		ArgsUsage: "<platform-token>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			token := cmd.Args().First()
			if token == "" {
				return errors.New("platform token argument required")
			}

			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			backendToken, err := client.SetPlatformToken(ctx, token)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			fmt.Println(backendToken)
			return nil
		},
	}
}

func unregisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "unregister",
		Usage: "unregister the current backend token and clear local state",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			token, err := client.CachedToken(ctx)
			if err != nil {
				return fmt.Errorf("no registered token: %w", err)
			}

			if err := client.DeleteToken(ctx, token); err != nil {
				return fmt.Errorf("unregister failed: %w", err)
			}

			fmt.Println("unregistered")
			return nil
		},
	}
}

func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "subscribe the current registration to a topic",
		ArgsUsage: "<topic>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return topicAction(ctx, cmd, true)
		},
	}
}

func unsubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "unsubscribe",
		Usage:     "remove a topic subscription",
		ArgsUsage: "<topic>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return topicAction(ctx, cmd, false)
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "print the cached backend token, if any",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			token, err := client.CachedToken(ctx)
			if errors.Is(err, pushkit.ErrTokenNotAvailable) {
				fmt.Println("no token registered")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}
}

func topicAction(ctx context.Context, cmd *cli.Command, subscribe bool) error {
	topic := cmd.Args().First()
	if topic == "" {
		return errors.New("topic argument required")
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	if subscribe {
		err = client.SubscribeTopic(ctx, topic)
	} else {
		err = client.UnsubscribeTopic(ctx, topic)
	}
	if err != nil {
		return fmt.Errorf("topic call failed: %w", err)
	}

	fmt.Println("ok")
	return nil
}

// newClient loads configuration, sets up logging, and creates the SDK client.
func newClient(cmd *cli.Command) (*pushkit.Client, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	client, err := pushkit.New(&cfg.Push, pushkit.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func newLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
