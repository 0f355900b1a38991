package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cdplayer/internal/logging"
)

const (
	minStartTrack    = 1
	saveStatusOK     = "Success"
	saveStatusFailed = "NotValid"
)

// TrackNumber is the "Start at Track" field. Control surfaces send it either
// as a JSON number or as a string.
type TrackNumber string

// UnmarshalJSON accepts a number, a string or null.
func (n *TrackNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = TrackNumber(strings.TrimSpace(s))
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("start track: %w", err)
		}
		*n = TrackNumber(num.String())
	}
	return nil
}

// Int returns the parsed track number.
func (n TrackNumber) Int() (int, bool) {
	v, err := strconv.Atoi(string(n))
	return v, err == nil
}

// LayoutValues are the settings a control surface edits.
type LayoutValues struct {
	Zone   string      `json:"zone,omitempty"`
	Action Action      `json:"action,omitempty"`
	From   TrackNumber `json:"from,omitempty"`
}

// Choice is one dropdown entry. A zero Value means "no action".
type Choice struct {
	Title string `json:"title"`
	Value Action `json:"value,omitempty"`
}

// Control is one field of the settings layout.
type Control struct {
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Setting string   `json:"setting"`
	Values  []Choice `json:"values,omitempty"`
	Min     *int     `json:"min,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Layout is the settings form sent to the control surface.
type Layout struct {
	Values   LayoutValues `json:"values"`
	Layout   []Control    `json:"layout"`
	HasError bool         `json:"has_error"`
}

// BuildLayout renders the settings form for the given values. The action
// dropdown offers Play when idle and Stop otherwise; the start track field is
// shown only when Play is selected.
func BuildLayout(values LayoutValues, state State) Layout {
	l := Layout{Values: values}
	l.Layout = append(l.Layout, Control{
		Type:    "zone",
		Title:   "Auto-Tune Zone",
		Setting: "zone",
	})

	action := state.Action()
	l.Layout = append(l.Layout, Control{
		Type:    "dropdown",
		Title:   "Action",
		Setting: "action",
		Values: []Choice{
			{Title: "(select action)"},
			{Title: action.String(), Value: action},
		},
	})

	if values.Action == ActionPlay {
		minimum := minStartTrack
		field := Control{
			Type:    "integer",
			Title:   "Start at Track",
			Setting: "from",
			Min:     &minimum,
		}
		if l.Values.From == "" {
			l.Values.From = TrackNumber(strconv.Itoa(minStartTrack))
		}
		if from, ok := l.Values.From.Int(); !ok || from < minStartTrack {
			field.Error = fmt.Sprintf("The start track should be %d or higher", minStartTrack)
			l.HasError = true
		}
		l.Layout = append(l.Layout, field)
	}
	return l
}

// SaveReply answers a settings.save request.
type SaveReply struct {
	Status   string `json:"status"`
	Settings Layout `json:"settings"`
}

type saveRequest struct {
	Values LayoutValues `json:"values"`
	DryRun bool         `json:"dry_run"`
}

// HandleBridgeRequest serves settings requests sent by the control surface.
// It can be passed as the bridge client's handler.
func (s *Supervisor) HandleBridgeRequest(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "settings.get":
		var layout Layout
		_, err := s.request(ctx, func() (Snapshot, error) {
			layout = BuildLayout(LayoutValues{Zone: s.settings.Zone}, s.currentState())
			return Snapshot{}, nil
		})
		return layout, err
	case "settings.save":
		var req saveRequest
		if len(params) > 0 {
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, fmt.Errorf("decode settings: %w", err)
			}
		}
		var reply SaveReply
		_, err := s.request(ctx, func() (Snapshot, error) {
			reply = s.saveSettings(req.Values, req.DryRun)
			return Snapshot{}, nil
		})
		return reply, err
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}
}

func (s *Supervisor) saveSettings(values LayoutValues, dryRun bool) SaveReply {
	layout := BuildLayout(values, s.currentState())
	reply := SaveReply{Status: saveStatusOK, Settings: layout}
	if layout.HasError {
		reply.Status = saveStatusFailed
		return reply
	}
	if dryRun {
		return reply
	}

	s.settings.Zone = layout.Values.Zone
	switch layout.Values.Action {
	case ActionPlay:
		from, _ := layout.Values.From.Int()
		if _, err := s.play(from); err != nil && !errors.Is(err, ErrBusy) {
			s.logger.Info("play from settings rejected", logging.Error(err))
		}
	case ActionStop:
		s.stop()
	}
	s.publishLayout()
	return reply
}
