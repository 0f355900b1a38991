package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cdplayer/internal/logging"
	"cdplayer/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var fromAPI bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if fromAPI {
				return streamAPILogs(cmd, cfg.Paths.APIBind, cfg.Paths.APIToken, lines, follow)
			}
			path := cfg.LogPath()
			if path == "" {
				return errors.New("paths.log_dir is not configured")
			}

			out := cmd.OutOrStdout()
			result, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, result.Offset, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().BoolVar(&fromAPI, "api", false, "Read structured events from the daemon HTTP API instead of the log file")
	return cmd
}

func streamAPILogs(cmd *cobra.Command, bind, token string, lines int, follow bool) error {
	client, err := logs.NewStreamClient(bind, token)
	if err != nil {
		return fmt.Errorf("parse paths.api_bind: %w", err)
	}
	if client == nil {
		return errors.New("paths.api_bind is not configured")
	}
	out := cmd.OutOrStdout()

	// Start from the tail of the buffer: learn the newest sequence first.
	head, err := client.Fetch(cmd.Context(), logs.StreamQuery{Limit: 1})
	if err != nil {
		if logs.IsAPIUnavailable(err) {
			return fmt.Errorf("daemon HTTP API unreachable at %s: %w", bind, err)
		}
		return err
	}
	since := uint64(0)
	if lines > 0 && head.Next > uint64(lines) {
		since = head.Next - uint64(lines)
	} else if lines <= 0 {
		since = head.Next
	}

	err = client.Stream(cmd.Context(), since, max(lines, 1), follow, func(ev logging.LogEvent) {
		fmt.Fprintln(out, logs.FormatEvent(ev))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
