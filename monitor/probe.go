package monitor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// HandshakeStatus classifies what the probe could learn about the interface.
type HandshakeStatus int

const (
	// HandshakeAbsent means the interface does not exist on the system
	HandshakeAbsent HandshakeStatus = iota

	// HandshakeUnknown means the interface exists but none of its peers has ever completed a handshake
	HandshakeUnknown

	// HandshakeMeasured means at least one peer has a recorded handshake, Age holds its recency
	HandshakeMeasured
)

func (s HandshakeStatus) String() string {
	switch s {
	case HandshakeAbsent:
		return "Absent"
	case HandshakeUnknown:
		return "Unknown"
	case HandshakeMeasured:
		return "Measured"
	default:
		return fmt.Sprintf("HandshakeStatus(%d)", int(s))
	}
}

// HandshakeAge is the result of a single probe.
// Age is only meaningful when Status is HandshakeMeasured.
type HandshakeAge struct {
	Status HandshakeStatus
	Age    time.Duration
}

// StatusProbe abstracts away reading the handshake recency of a tunnel interface
// so that tests can substitute deterministic fakes.
//
// A failure to query the system (permission denied, transient unavailability)
// is returned as an error and is never mapped to HandshakeAbsent, the caller
// decides whether to retry on the next tick.
type StatusProbe interface {
	Probe(interfaceName string) (HandshakeAge, error)
}

// WireGuardStatusProbe reads device state over the wireguard control protocol.
type WireGuardStatusProbe struct {
	client *wgctrl.Client
}

// NewWireGuardStatusProbe opens a wireguard control client.
// The returned probe must be closed when no longer needed.
func NewWireGuardStatusProbe() (*WireGuardStatusProbe, error) {
	client, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open a wireguard control client: %v", err)
	}
	return &WireGuardStatusProbe{client: client}, nil
}

func (p *WireGuardStatusProbe) Probe(interfaceName string) (HandshakeAge, error) {
	device, err := p.client.Device(interfaceName)
	if errors.Is(err, os.ErrNotExist) {
		return HandshakeAge{Status: HandshakeAbsent}, nil
	}
	if err != nil {
		return HandshakeAge{}, fmt.Errorf("failed to read the state of interface %q: %v", interfaceName, err)
	}
	return deviceHandshakeAge(device, time.Now()), nil
}

func (p *WireGuardStatusProbe) Close() error {
	return p.client.Close()
}

// deviceHandshakeAge derives the handshake recency of a device from its peers.
// The newest handshake across all peers wins, a device whose peers have never
// handshaked reports HandshakeUnknown.
func deviceHandshakeAge(device *wgtypes.Device, now time.Time) HandshakeAge {
	var latest time.Time
	for _, peer := range device.Peers {
		if peer.LastHandshakeTime.After(latest) {
			latest = peer.LastHandshakeTime
		}
	}
	if latest.IsZero() {
		return HandshakeAge{Status: HandshakeUnknown}
	}
	return HandshakeAge{Status: HandshakeMeasured, Age: now.Sub(latest)}
}
