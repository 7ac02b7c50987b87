package tstate

import "github.com/prometheus/client_golang/prometheus"

var (
	savePasses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tstated",
		Subsystem: "compensator",
		Name:      "save_passes_total",
		Help:      "Completed pre-suspend register save passes",
	})

	restorePasses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tstated",
		Subsystem: "compensator",
		Name:      "restore_passes_total",
		Help:      "Completed post-resume register restore passes",
	})

	cpuFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tstated",
		Subsystem: "compensator",
		Name:      "cpu_failures_total",
		Help:      "Per-CPU register accesses that failed and were skipped",
	}, []string{"pass"})
)

func init() {
	prometheus.MustRegister(savePasses, restorePasses, cpuFailures)
}
