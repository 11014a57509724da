package middleware

import (
	"github.com/grafana/pyroscope-go"

	"github.com/duynhne/user-service/config"
)

var profiler *pyroscope.Profiler

// InitProfiling starts continuous profiling to the Pyroscope server in cfg
func InitProfiling(cfg config.ProfilingConfig) error {
	// Same detection as tracing, so profiles and traces share a service name
	serviceName, namespace := detectServiceInfo(cfg.ServiceName)

	var err error
	profiler, err = pyroscope.Start(pyroscope.Config{
		ApplicationName: serviceName,
		ServerAddress:   cfg.Endpoint,
		// Tags become Pyroscope labels for filtering across namespaces
		Tags: map[string]string{
			"service":   serviceName,
			"namespace": namespace,
		},
		// mutex and block profiles matter most for the repository lock and pool waits
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockDuration,
		},
	})
	return err
}

// StopProfiling stops Pyroscope profiling
func StopProfiling() {
	if profiler != nil {
		_ = profiler.Stop()
	}
}
