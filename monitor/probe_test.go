package monitor

import (
	"testing"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

func TestDeviceHandshakeAge(t *testing.T) {
	now := time.Date(2021, 7, 6, 12, 0, 0, 0, time.UTC)

	scenarios := []struct {
		name     string
		device   *wgtypes.Device
		expected HandshakeAge
	}{
		// scenario 1
		{
			name:     "a device without peers has an unknown handshake age",
			device:   &wgtypes.Device{Name: "wg0"},
			expected: HandshakeAge{Status: HandshakeUnknown},
		},

		// scenario 2
		{
			name: "a peer that never handshaked has an unknown handshake age",
			device: &wgtypes.Device{
				Name:  "wg0",
				Peers: []wgtypes.Peer{{}},
			},
			expected: HandshakeAge{Status: HandshakeUnknown},
		},

		// scenario 3
		{
			name: "a single handshake is measured",
			device: &wgtypes.Device{
				Name: "wg0",
				Peers: []wgtypes.Peer{
					{LastHandshakeTime: now.Add(-5 * time.Minute)},
				},
			},
			expected: HandshakeAge{Status: HandshakeMeasured, Age: 5 * time.Minute},
		},

		// scenario 4
		{
			name: "the newest handshake across peers wins",
			device: &wgtypes.Device{
				Name: "wg0",
				Peers: []wgtypes.Peer{
					{LastHandshakeTime: now.Add(-15 * time.Minute)},
					{LastHandshakeTime: now.Add(-2 * time.Minute)},
					{},
				},
			},
			expected: HandshakeAge{Status: HandshakeMeasured, Age: 2 * time.Minute},
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			// act
			age := deviceHandshakeAge(scenario.device, now)

			// validate
			if age != scenario.expected {
				t.Errorf("unexpected handshake age %+v, expected %+v", age, scenario.expected)
			}
		})
	}
}
