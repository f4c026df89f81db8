package monitor

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/clock"
	"k8s.io/klog/v2"
)

// loopState models the two speeds of the monitor loop.
// The active sleep duration is selected by the current state.
type loopState int

const (
	// stateNormal polls the interface every loopInterval
	stateNormal loopState = iota

	// stateCoolingDown is entered right after a restart was issued and lasts
	// for a single retryAfterRestart sleep, it suppresses further restart
	// decisions while the tunnel re-establishes
	stateCoolingDown
)

type RestartMonitor struct {
	// interfaceName holds the name of the monitored tunnel interface
	interfaceName string

	// unitName holds the name of the systemd unit that owns the interface
	unitName string

	// handshakeTimeout specifies the maximum tolerable time since the last
	// handshake, crossing it marks the tunnel as stale
	handshakeTimeout time.Duration

	// loopInterval specifies the steady-state time interval at which the
	// interface will be probed
	// be mindful of not setting it too low, on each iteration, an i/o is involved
	loopInterval time.Duration

	// retryAfterRestart specifies how long to suppress probing after a restart
	// was issued, the tunnel needs time to re-handshake and a further restart
	// attempt during that window would be counter-productive
	retryAfterRestart time.Duration

	// probe reads the handshake recency of the target interface
	probe StatusProbe

	// serviceManager restarts the unit that owns the target interface
	serviceManager ServiceManager

	// clock is mocked out during tests to make the timing contract deterministic
	clock clock.Clock

	// state records which sleep duration the loop chose last
	state loopState

	// unknownSince records when the interface was first seen without any
	// recorded handshake, zero when the last reading was not Unknown
	unknownSince time.Time
}

func New(probe StatusProbe, serviceManager ServiceManager) *RestartMonitor {
	return &RestartMonitor{probe: probe, serviceManager: serviceManager, clock: clock.RealClock{}}
}

func (m *RestartMonitor) Run(ctx context.Context) {
	klog.Infof("Starting the restart monitor for interface %q (unit %q) with HandshakeTimeout = %v, LoopInterval = %v, RetryAfterRestart = %v", m.interfaceName, m.unitName, m.handshakeTimeout, m.loopInterval, m.retryAfterRestart)
	defer klog.Info("Shutting down the restart monitor")

	for {
		interval := m.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(interval):
		}
	}
}

// tick runs a single probe/decide cycle and returns how long the loop should
// sleep before the next one.
func (m *RestartMonitor) tick(ctx context.Context) time.Duration {
	restarted, err := m.sync(ctx)
	if err != nil {
		klog.Error(err)
	}
	if restarted {
		m.state = stateCoolingDown
		return m.retryAfterRestart
	}
	m.state = stateNormal
	return m.loopInterval
}

// sync probes the interface once and restarts the unit if the tunnel is stale.
// It reports whether a restart was issued, a failed restart attempt still
// counts as issued so that the caller enters the cooldown window.
func (m *RestartMonitor) sync(ctx context.Context) (bool, error) {
	age, err := m.probe.Probe(m.interfaceName)
	if err != nil {
		// an uncertain state must not trigger a disruptive action, retry on the next tick
		return false, err
	}

	switch age.Status {
	case HandshakeAbsent:
		// the interface may be intentionally down or brought up later
		klog.V(2).Infof("interface %q is not present, skipping", m.interfaceName)
		m.unknownSince = time.Time{}
		return false, nil

	case HandshakeUnknown:
		if m.unknownSince.IsZero() {
			m.unknownSince = m.clock.Now()
			klog.Infof("no handshake recorded yet on interface %q, waiting", m.interfaceName)
			return false, nil
		}
		sinceUnknown := m.clock.Now().Sub(m.unknownSince)
		if sinceUnknown < m.handshakeTimeout {
			return false, nil
		}
		klog.Infof("no handshake recorded on interface %q for %v, restarting unit %q", m.interfaceName, sinceUnknown, m.unitName)

	case HandshakeMeasured:
		m.unknownSince = time.Time{}
		if age.Age < m.handshakeTimeout {
			klog.V(2).Infof("last handshake on interface %q was %v ago", m.interfaceName, age.Age)
			return false, nil
		}
		klog.Infof("handshake timeout on interface %q, %v >= %v, restarting unit %q", m.interfaceName, age.Age, m.handshakeTimeout, m.unitName)
	}

	// a restart starts a fresh staleness episode
	m.unknownSince = time.Time{}

	if err := m.serviceManager.Restart(ctx, m.unitName); err != nil {
		// a transient restart failure must not wedge the watchdog, enter the
		// cooldown window anyway and re-evaluate on the next cycle
		return true, err
	}
	return true, nil
}
