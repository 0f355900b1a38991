package disc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"cdplayer/internal/logging"
)

var (
	// ErrNoDisc is returned when the drive holds no readable audio disc.
	ErrNoDisc = errors.New("no disc in drive")
	// ErrNoTracks is returned when the TOC query ended without a track count.
	ErrNoTracks = errors.New("table of contents did not report a track count")
)

// Executor abstracts command execution for the inspector.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

// wodim reports drive problems on stderr, so both streams are parsed.
func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Inspector runs a table-of-contents query against the drive. wodim closes
// the tray as a side effect when needed.
type Inspector struct {
	binary      string
	device      string
	exec        Executor
	logger      *slog.Logger
	driveStatus func(string) (DriveStatus, error)
}

// NewInspector constructs an Inspector for the given wodim binary and device.
func NewInspector(binary, device string, logger *slog.Logger) *Inspector {
	return NewInspectorWithExecutor(binary, device, commandExecutor{}, logger)
}

// NewInspectorWithExecutor allows injecting a custom executor for testing.
func NewInspectorWithExecutor(binary, device string, exec Executor, logger *slog.Logger) *Inspector {
	if exec == nil {
		exec = commandExecutor{}
	}
	return &Inspector{
		binary:      strings.TrimSpace(binary),
		device:      strings.TrimSpace(device),
		exec:        exec,
		logger:      logging.NewComponentLogger(logger, "disc"),
		driveStatus: CheckDriveStatus,
	}
}

// Device returns the drive path the inspector queries.
func (i *Inspector) Device() string {
	return i.device
}

// Query returns the number of audio tracks on the disc. It fails with
// ErrNoDisc when wodim reports an empty drive and ErrNoTracks when the
// process finished without reporting a count.
func (i *Inspector) Query(ctx context.Context) (int, error) {
	if i.binary == "" {
		return 0, errors.New("toc binary not configured")
	}
	i.logDriveStatus()

	args := []string{"dev=" + i.device, "-toc"}
	output, runErr := i.exec.Run(ctx, i.binary, args)
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" {
			i.logger.Debug(line, logging.String(logging.FieldProcess, i.binary), logging.String(logging.FieldStream, "stdout"))
		}
	}

	toc := ParseTOC(string(output))
	switch {
	case toc.NoDisc:
		return 0, ErrNoDisc
	case toc.Tracks > 0:
		return toc.Tracks, nil
	case ctx.Err() != nil:
		return 0, fmt.Errorf("toc query: %w", ctx.Err())
	case runErr != nil:
		return 0, fmt.Errorf("%w: %s: %w", ErrNoTracks, i.binary, runErr)
	default:
		return 0, ErrNoTracks
	}
}

func (i *Inspector) logDriveStatus() {
	if i.driveStatus == nil || i.device == "" {
		return
	}
	status, err := i.driveStatus(i.device)
	if err != nil {
		i.logger.Debug("drive status unavailable", logging.Error(err))
		return
	}
	i.logger.Debug("drive status", logging.String("device", i.device), logging.String("drive_status", status.String()))
}
