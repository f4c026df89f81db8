package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"k8s.io/klog/v2"
)

const (
	systemdBusName          = "org.freedesktop.systemd1"
	systemdObjectPath       = "/org/freedesktop/systemd1"
	systemdManagerInterface = "org.freedesktop.systemd1.Manager"
	systemdUnitInterface    = "org.freedesktop.systemd1.Unit"

	dbusPropertiesGet = "org.freedesktop.DBus.Properties.Get"

	noSuchUnitError = "org.freedesktop.systemd1.NoSuchUnit"
)

// ServiceManager abstracts away the service manager that owns the tunnel unit
// so that tests can substitute scripted restart outcomes.
type ServiceManager interface {
	// IsActive reports whether the given unit is currently active
	IsActive(ctx context.Context, unitName string) (bool, error)

	// Restart synchronously requests a restart of the given unit
	Restart(ctx context.Context, unitName string) error
}

// UnitNameForInterface maps a tunnel interface to the systemd unit that owns it.
func UnitNameForInterface(interfaceName string) string {
	return fmt.Sprintf("wg-quick@%s.service", interfaceName)
}

// SystemdServiceManager talks to systemd directly over the system bus.
type SystemdServiceManager struct {
	conn *dbus.Conn
}

// NewSystemdServiceManager connects to the system bus.
// The returned manager must be closed when no longer needed.
func NewSystemdServiceManager() (*SystemdServiceManager, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the system bus: %v", err)
	}
	return &SystemdServiceManager{conn: conn}, nil
}

func (s *SystemdServiceManager) IsActive(ctx context.Context, unitName string) (bool, error) {
	managerObj := s.conn.Object(systemdBusName, systemdObjectPath)

	var unitPath dbus.ObjectPath
	if err := managerObj.CallWithContext(ctx, systemdManagerInterface+".GetUnit", 0, unitName).Store(&unitPath); err != nil {
		var dbusErr dbus.Error
		if errors.As(err, &dbusErr) && dbusErr.Name == noSuchUnitError {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up unit %q: %v", unitName, err)
	}

	unitObj := s.conn.Object(systemdBusName, unitPath)
	var activeState string
	if err := unitObj.CallWithContext(ctx, dbusPropertiesGet, 0, systemdUnitInterface, "ActiveState").Store(&activeState); err != nil {
		return false, fmt.Errorf("failed to read the active state of unit %q: %v", unitName, err)
	}

	return activeState == "active", nil
}

func (s *SystemdServiceManager) Restart(ctx context.Context, unitName string) error {
	managerObj := s.conn.Object(systemdBusName, systemdObjectPath)

	// "replace" cancels queued jobs that conflict with the restart
	var jobPath dbus.ObjectPath
	if err := managerObj.CallWithContext(ctx, systemdManagerInterface+".RestartUnit", 0, unitName, "replace").Store(&jobPath); err != nil {
		return fmt.Errorf("failed to restart unit %q: %v", unitName, err)
	}

	klog.V(1).Infof("systemd queued restart job %s for unit %q", jobPath, unitName)
	return nil
}

func (s *SystemdServiceManager) Close() error {
	return s.conn.Close()
}
