package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

const testDevice = "/dev/cdplayer-test-sr0"

func TestNewNetlinkMonitor(t *testing.T) {
	if m := newNetlinkMonitor("  ", nil, nil, nil); m != nil {
		t.Error("expected nil monitor for empty device")
	}
	m := newNetlinkMonitor(testDevice, nil, nil, nil)
	if m == nil {
		t.Fatal("expected non-nil monitor")
	}
	if m.device != testDevice {
		t.Errorf("expected device %s, got %s", testDevice, m.device)
	}
}

func TestNetlinkMonitorNilAndUnstartedAreSafe(t *testing.T) {
	var nilMonitor *netlinkMonitor
	if nilMonitor.Running() {
		t.Error("expected Running() to return false for nil monitor")
	}
	nilMonitor.Stop()
	if err := nilMonitor.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor should return nil, got: %v", err)
	}

	m := newNetlinkMonitor(testDevice, nil, nil, nil)
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Error("expected unstarted monitor to report not running")
	}
}

func TestBuildMatcher(t *testing.T) {
	m := newNetlinkMonitor(testDevice, nil, nil, nil)
	matcher := m.buildMatcher()

	media := map[string]string{"SUBSYSTEM": "block", "ID_CDROM": "1", "ID_CDROM_MEDIA": "1"}
	cases := []struct {
		name  string
		event netlink.UEvent
		want  bool
	}{
		{"change with media", netlink.UEvent{Action: netlink.CHANGE, Env: media}, true},
		{"add with media", netlink.UEvent{Action: netlink.ADD, Env: media}, true},
		{"remove", netlink.UEvent{Action: netlink.REMOVE, Env: media}, false},
		{"tray without media", netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"SUBSYSTEM": "block", "ID_CDROM": "1"}}, false},
	}
	for _, tc := range cases {
		if got := matcher.Evaluate(tc.event); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestHandleEventStartsPlaybackForConfiguredDrive(t *testing.T) {
	var calls atomic.Int32
	var received atomic.Value
	var busy atomic.Bool
	handler := func(_ context.Context, device string) error {
		calls.Add(1)
		received.Store(device)
		return nil
	}
	m := newNetlinkMonitor(testDevice, nil, handler, busy.Load)

	m.handleEvent(context.Background(), netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{}})
	m.handleEvent(context.Background(), netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"DEVNAME": "/dev/sr9"}})
	if calls.Load() != 0 {
		t.Fatalf("handler called for unrelated events: %d", calls.Load())
	}

	m.handleEvent(context.Background(), netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"DEVNAME": testDevice}})
	if calls.Load() != 1 || received.Load() != testDevice {
		t.Fatalf("expected one call for %s, got %d (%v)", testDevice, calls.Load(), received.Load())
	}

	busy.Store(true)
	m.handleEvent(context.Background(), netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"DEVNAME": testDevice}})
	if calls.Load() != 1 {
		t.Fatal("handler must not run while the player is busy")
	}
}

func TestHandleEventReadsDevpathAndSurvivesHandlerError(t *testing.T) {
	var received string
	m := newNetlinkMonitor("/dev/sr0", nil, func(_ context.Context, device string) error {
		received = device
		return errors.New("drive not ready")
	}, nil)
	m.device = "/dev/sr0"
	m.handleEvent(context.Background(), netlink.UEvent{
		Action: netlink.CHANGE,
		Env: map[string]string{
			"DEVPATH": "/devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sr0",
		},
	})
	if received != "/dev/sr0" {
		t.Fatalf("expected device /dev/sr0 from DEVPATH, got %q", received)
	}
}

func TestExtractDeviceNameQualifiesBareNames(t *testing.T) {
	if got := extractDeviceName(netlink.UEvent{Env: map[string]string{"DEVNAME": "sr0"}}); got != "/dev/sr0" {
		t.Fatalf("expected /dev/sr0, got %q", got)
	}
}
