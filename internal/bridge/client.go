package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"cdplayer/internal/logging"
)

const readLimit = 1 << 20

// ErrClosed is returned for calls made after Close, or pending when the
// connection dropped.
var ErrClosed = errors.New("bridge connection closed")

// RemoteError is an error reported by the bridge for a call.
type RemoteError struct {
	Method  string
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge %s: %s", e.Method, e.Message)
}

// Handler serves requests the bridge sends to us, such as settings saved on
// the control surface.
type Handler func(ctx context.Context, method string, params json.RawMessage) (any, error)

// Options configures the client.
type Options struct {
	URL            string
	Token          string
	RequestTimeout time.Duration
}

type envelope struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`

	lost bool
}

// Client speaks the control bridge protocol: JSON messages over a websocket,
// requests carrying an id that the matching response echoes. The connection
// is dialled on first use and re-dialled after it drops.
type Client struct {
	opts    Options
	logger  *slog.Logger
	handler Handler

	nextID atomic.Int64

	mu      sync.Mutex
	conn    *websocket.Conn
	dialing chan struct{}
	pending map[int64]chan envelope
	closed  bool
}

// New constructs a Client. handler may be nil.
func New(opts Options, logger *slog.Logger, handler Handler) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &Client{
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "bridge"),
		handler: handler,
		pending: make(map[int64]chan envelope),
	}
}

// Connect dials the bridge if not already connected.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connection(ctx)
	return err
}

// Close shuts the connection down. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	pending := c.pending
	c.pending = make(map[int64]chan envelope)
	c.mu.Unlock()

	for _, reply := range pending {
		deliver(reply, envelope{lost: true})
	}
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}

// Browse moves the catalog cursor.
func (c *Client) Browse(ctx context.Context, req BrowseRequest) (BrowseResult, error) {
	var res BrowseResult
	err := c.call(ctx, "browse", req, &res)
	return res, err
}

// Load fetches the current catalog page.
func (c *Client) Load(ctx context.Context, req LoadRequest) (Page, error) {
	var page Page
	err := c.call(ctx, "load", req, &page)
	return page, err
}

// Control sends a transport verb such as "stop" to a zone.
func (c *Client) Control(ctx context.Context, zone, control string) error {
	return c.call(ctx, "transport.control", controlParams{Zone: zone, Control: control}, nil)
}

// SetStatus publishes the status line shown on the control surface.
func (c *Client) SetStatus(ctx context.Context, message string, isError bool) error {
	return c.call(ctx, "status.set", statusParams{Message: message, IsError: isError}, nil)
}

// UpdateSettings publishes a new settings layout.
func (c *Client) UpdateSettings(ctx context.Context, layout any) error {
	return c.call(ctx, "settings.update", layout, nil)
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s params: %w", method, err)
	}
	id := c.nextID.Add(1)
	reply := make(chan envelope, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ErrClosed)
	}
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := wsjson.Write(ctx, conn, envelope{ID: id, Method: method, Params: raw}); err != nil {
		c.drop(conn, err)
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case msg := <-reply:
		if msg.lost {
			return fmt.Errorf("%s: %w", method, ErrClosed)
		}
		if msg.Error != nil {
			msg.Error.Method = method
			return msg.Error
		}
		if result != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// connection returns the live connection, dialling one if needed. Only one
// dial runs at a time; it happens outside c.mu so responses keep flowing.
func (c *Client) connection(ctx context.Context) (*websocket.Conn, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		if c.conn != nil {
			conn := c.conn
			c.mu.Unlock()
			return conn, nil
		}
		if wait := c.dialing; wait != nil {
			c.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		c.dialing = done
		c.mu.Unlock()

		conn, err := c.dial(ctx)

		c.mu.Lock()
		c.dialing = nil
		close(done)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return nil, ErrClosed
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("bridge connected", logging.String("url", c.opts.URL))
		go c.readLoop(conn)
		return conn, nil
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	if strings.TrimSpace(c.opts.URL) == "" {
		return nil, errors.New("bridge url not configured")
	}
	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	conn, _, err := websocket.Dial(ctx, c.opts.URL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("dial bridge %s: %w", c.opts.URL, err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		var msg envelope
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			c.drop(conn, err)
			return
		}
		if msg.Method != "" {
			go c.serve(conn, msg)
			continue
		}
		c.mu.Lock()
		reply, ok := c.pending[msg.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("unmatched bridge response", logging.Int64("id", msg.ID))
			continue
		}
		deliver(reply, msg)
	}
}

func deliver(reply chan envelope, msg envelope) {
	select {
	case reply <- msg:
	default:
	}
}

func (c *Client) serve(conn *websocket.Conn, req envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
	defer cancel()

	resp := envelope{ID: req.ID}
	if c.handler == nil {
		resp.Error = &RemoteError{Message: "unsupported method " + req.Method}
	} else if result, err := c.handler(ctx, req.Method, req.Params); err != nil {
		resp.Error = &RemoteError{Message: err.Error()}
	} else if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			resp.Error = &RemoteError{Message: err.Error()}
		} else {
			resp.Result = raw
		}
	}
	if req.ID == 0 {
		return
	}
	if err := wsjson.Write(ctx, conn, resp); err != nil {
		c.logger.Debug("bridge reply failed", logging.String("method", req.Method), logging.Error(err))
	}
}

// drop forgets a broken connection and fails its pending calls.
func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	pending := c.pending
	c.pending = make(map[int64]chan envelope)
	closed := c.closed
	c.mu.Unlock()

	for _, reply := range pending {
		deliver(reply, envelope{lost: true})
	}
	_ = conn.Close(websocket.StatusGoingAway, "")
	if !closed && websocket.CloseStatus(cause) == -1 {
		c.logger.Warn("bridge connection lost", logging.Error(cause))
	}
}
