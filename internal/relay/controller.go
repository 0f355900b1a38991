package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrNoAck is returned when the relay closed the control connection without
// acknowledging a command.
var ErrNoAck = errors.New("relay did not acknowledge command")

// Controller sends commands over the relay's control socket. Each command
// uses its own connection.
type Controller struct {
	socket   string
	streamID string
	timeout  time.Duration
	now      func() time.Time
}

// NewController constructs a Controller.
func NewController(socket, streamID string, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Controller{socket: socket, streamID: streamID, timeout: timeout, now: time.Now}
}

// StartCommand is the command that switches the relay's stream on.
func (c *Controller) StartCommand() string {
	return c.streamID + ".start"
}

// Start asks the relay to begin streaming and returns when the command was
// acknowledged. The returned time is when the command was written; the
// stream itself is confirmed later through the relay log.
func (c *Controller) Start(ctx context.Context) (time.Time, error) {
	return c.Command(ctx, c.StartCommand())
}

// Command writes one command line and waits for the "OK" reply.
func (c *Controller) Command(ctx context.Context, command string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return time.Time{}, fmt.Errorf("connect relay control %s: %w", c.socket, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	issued := c.now()
	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return issued, fmt.Errorf("send %q: %w", command, err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "OK":
			return issued, nil
		case "END":
			return issued, fmt.Errorf("%w: %q", ErrNoAck, command)
		}
	}
	if err := scanner.Err(); err != nil {
		return issued, fmt.Errorf("read reply to %q: %w", command, err)
	}
	return issued, fmt.Errorf("%w: %q", ErrNoAck, command)
}
