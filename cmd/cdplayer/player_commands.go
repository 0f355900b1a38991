package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cdplayer/internal/daemonctl"
	"cdplayer/internal/deps"
	"cdplayer/internal/ipc"
)

func newPlayerCommands(ctx *commandContext) []*cobra.Command {
	var from int
	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Start playing the disc in the drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from < 1 {
				return fmt.Errorf("--from must be 1 or higher, got %d", from)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Play(from)
				if err != nil {
					return err
				}
				if !resp.Started {
					return errors.New(resp.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Playback starting at track %d (session %s)\n", from, resp.Session.SessionID)
				return nil
			})
		},
	}
	playCmd.Flags().IntVar(&from, "from", 1, "Track to start playing from")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop playback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stop requested (state: %s)\n", resp.Session.State)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, session and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			var status *ipc.StatusResponse
			if err := ctx.withClient(func(client *ipc.Client) error {
				var err error
				status, err = client.Status()
				return err
			}); err != nil {
				return err
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if status.Running {
				fmt.Fprintln(stdout, renderStatusLine("cdplayerd", statusOK, "Running (pid "+strconv.Itoa(status.PID)+")", colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("cdplayerd", statusWarn, "Not serving playback", colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Session", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range sessionLines(status.Session, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(status.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Launch cdplayerd in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonctl.DaemonExecutable()
			if err != nil {
				return err
			}
			opts := daemonctl.LaunchOptions{}
			if ctx.configFlag != nil {
				opts.ConfigPath = strings.TrimSpace(*ctx.configFlag)
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, opts, 10*time.Second)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}

	var wait bool
	shutdownCmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Stop playback and exit the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Shutdown()
				if err != nil {
					return err
				}
				if !resp.Accepted {
					return errors.New("daemon did not accept the shutdown request")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon shutting down")
				return nil
			})
			if err != nil || !wait {
				return err
			}
			if err := daemonctl.WaitForShutdown(ctx.socketPath(), 15*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
			return nil
		},
	}
	shutdownCmd.Flags().BoolVar(&wait, "wait", false, "Wait until the daemon has exited")

	ejectCmd := &cobra.Command{
		Use:   "eject",
		Short: "Open the drive tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Eject()
				if err != nil {
					return err
				}
				if !resp.Ejected {
					return errors.New(resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Tray ejected")
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, playCmd, stopCmd, statusCmd, shutdownCmd, ejectCmd}
}

// newDepsCommand checks the external programs locally, so it works before
// the daemon has ever started.
func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external programs the player needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rendered, missing := renderDependencyTable(deps.CheckAll(cfg), shouldColorize(out))
			fmt.Fprintln(out, rendered)
			if missing > 0 {
				return fmt.Errorf("%d required dependencies missing", missing)
			}
			return nil
		},
	}
}
