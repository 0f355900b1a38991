package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"cdplayer/internal/logging"
)

var ErrAPIUnavailable = errors.New("log API unavailable")

// StreamResponse mirrors the body of GET /api/logs.
type StreamResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

type StreamClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

type StreamQuery struct {
	Since  uint64
	Limit  int
	Follow bool
}

// NewStreamClient returns nil when bind is empty.
func NewStreamClient(bind, token string) (*StreamClient, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &StreamClient{
		base:  base,
		token: strings.TrimSpace(token),
		// Follow requests are held open by the server until an event arrives.
		http: &http.Client{},
	}, nil
}

func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (StreamResponse, error) {
	if c == nil {
		return StreamResponse{}, ErrAPIUnavailable
	}

	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return StreamResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return StreamResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return StreamResponse{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}

	var payload StreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return StreamResponse{}, err
	}
	return payload, nil
}

// Stream fetches events after since and keeps following until ctx ends.
func (c *StreamClient) Stream(ctx context.Context, since uint64, limit int, follow bool, fn func(logging.LogEvent)) error {
	for {
		resp, err := c.Fetch(ctx, StreamQuery{Since: since, Limit: limit, Follow: follow})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		for _, ev := range resp.Events {
			fn(ev)
			since = max(since, ev.Sequence)
		}
		if !follow {
			return nil
		}
		if len(resp.Events) == 0 {
			since = max(since, resp.Next)
		}
	}
}

func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}

// FormatEvent renders an event as a single console line.
func FormatEvent(ev logging.LogEvent) string {
	var b strings.Builder
	b.WriteString(ev.Timestamp.Local().Format(time.DateTime))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(ev.Level))
	b.WriteByte(' ')
	if ev.Component != "" {
		b.WriteString(ev.Component)
		b.WriteString(": ")
	}
	b.WriteString(ev.Message)
	if ev.SessionID != "" {
		b.WriteString(" session=")
		b.WriteString(shortID(ev.SessionID))
	}
	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := ev.Fields[k]
		if strings.ContainsAny(v, " \t\"") {
			v = strconv.Quote(v)
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
