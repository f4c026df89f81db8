package main

import (
	"github.com/p0lyn0mial/wg-restarter/monitor"

	"k8s.io/klog/v2"
)

func main() {
	if err := monitor.NewRestartMonitorCommand().Execute(); err != nil {
		klog.Exit(err)
	}
}
