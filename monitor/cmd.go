package monitor

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/klog/v2"
)

// version is overridden at build time via -ldflags
var version = "v0.1.0"

type RestartMonitorOptions struct {
	// HandshakeTimeout specifies the maximum tolerable time since the last
	// handshake after which the monitor restarts the unit
	HandshakeTimeout time.Duration

	// LoopInterval specifies the steady-state time interval at which the
	// interface will be probed
	LoopInterval time.Duration

	// RetryAfterRestart specifies how long the monitor suppresses probing
	// after it has issued a restart
	RetryAfterRestart time.Duration

	// InterfaceName holds the name of the tunnel interface to monitor
	InterfaceName string
}

func NewRestartMonitorCommand() *cobra.Command {
	o := RestartMonitorOptions{}

	cmd := &cobra.Command{
		Use:     "wg-restarter [flags] INTERFACE",
		Short:   "Monitors the handshake recency of a WireGuard interface and restarts the owning systemd unit when the tunnel goes stale.",
		Version: version,
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			o.InterfaceName = strings.TrimSpace(args[0])

			klog.V(1).Info(cmd.Flags())
			klog.V(1).Info(spew.Sdump(o))

			if err := o.Validate(); err != nil {
				klog.Exit(err)
			}

			if err := o.Run(); err != nil {
				klog.Exit(err)
			}
		},
	}

	o.AddFlags(cmd.Flags())

	return cmd
}

func (o *RestartMonitorOptions) AddFlags(fs *pflag.FlagSet) {
	fs.DurationVarP(&o.HandshakeTimeout, "timeout", "t", 10*time.Minute, "maximum tolerable time since the last handshake before the unit is restarted (default: 10m)")
	fs.DurationVarP(&o.LoopInterval, "loop-interval", "l", 60*time.Second, "time interval at which the interface will be probed (default: 60s)")
	fs.DurationVarP(&o.RetryAfterRestart, "retry-after-unit-restart", "r", 30*time.Second, "time to wait after a unit restart before probing resumes (default: 30s)")

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	fs.AddGoFlagSet(klogFlags)
}

func (o *RestartMonitorOptions) Validate() error {
	if len(o.InterfaceName) == 0 {
		return fmt.Errorf("the interface name cannot be empty")
	}
	if o.HandshakeTimeout <= 0 {
		return fmt.Errorf("--timeout must be a positive duration")
	}
	if o.LoopInterval <= 0 {
		return fmt.Errorf("--loop-interval must be a positive duration")
	}
	if o.RetryAfterRestart <= 0 {
		return fmt.Errorf("--retry-after-unit-restart must be a positive duration")
	}
	return nil
}

func (o *RestartMonitorOptions) Run() error {
	shutdownCtx := SetupSignalContext(context.TODO())

	probe, err := NewWireGuardStatusProbe()
	if err != nil {
		return err
	}
	defer probe.Close()

	serviceManager, err := NewSystemdServiceManager()
	if err != nil {
		return err
	}
	defer serviceManager.Close()

	// refuse to babysit a unit the operator never started
	unitName := UnitNameForInterface(o.InterfaceName)
	active, err := serviceManager.IsActive(shutdownCtx, unitName)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("the systemd unit %q is not active", unitName)
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		klog.Warningf("failed to notify systemd about readiness: %v", err)
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	// start monitor
	m := New(probe, serviceManager).
		WithInterface(o.InterfaceName).
		WithHandshakeTimeout(o.HandshakeTimeout).
		WithLoopInterval(o.LoopInterval).
		WithRetryAfterRestart(o.RetryAfterRestart)

	m.Run(shutdownCtx)
	return nil
}
