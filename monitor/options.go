package monitor

import "time"

// WithInterface specifies the tunnel interface to monitor and derives the
// systemd unit that owns it.
func (m *RestartMonitor) WithInterface(interfaceName string) *RestartMonitor {
	m.interfaceName = interfaceName
	m.unitName = UnitNameForInterface(interfaceName)
	return m
}

// WithHandshakeTimeout specifies the maximum tolerable time since the last
// handshake after which the monitor restarts the unit.
func (m *RestartMonitor) WithHandshakeTimeout(timeout time.Duration) *RestartMonitor {
	m.handshakeTimeout = timeout
	return m
}

// WithLoopInterval specifies a time interval at which the interface will be probed.
// Be mindful of not setting it too low, on each iteration, an i/o is involved
func (m *RestartMonitor) WithLoopInterval(loopInterval time.Duration) *RestartMonitor {
	m.loopInterval = loopInterval
	return m
}

// WithRetryAfterRestart specifies how long the monitor suppresses probing
// after it has issued a restart.
func (m *RestartMonitor) WithRetryAfterRestart(retryAfterRestart time.Duration) *RestartMonitor {
	m.retryAfterRestart = retryAfterRestart
	return m
}
