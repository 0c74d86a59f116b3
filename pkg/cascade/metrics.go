package cascade

import "time"

// Metrics receives scheduler measurements. pkg/metrics provides a
// Prometheus implementation.
type Metrics interface {
	ObservePass(nodes int, d time.Duration)
	ObserveHook(h Hook)
	ObserveFollowUp()
	ObserveWarning(h Hook)
	ObserveError(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObservePass(int, time.Duration) {}
func (nopMetrics) ObserveHook(Hook)               {}
func (nopMetrics) ObserveFollowUp()               {}
func (nopMetrics) ObserveWarning(Hook)            {}
func (nopMetrics) ObserveError(string)            {}
