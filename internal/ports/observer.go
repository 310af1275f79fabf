package ports

import "time"

// RecomputeObserver is notified after every indicator recompute pass.
type RecomputeObserver interface {
	ObserveRecompute(indicator string, elapsed time.Duration, points int, err error)
}

// StreamObserver is notified of live price updates and stream failures.
type StreamObserver interface {
	ObservePriceUpdate()
	ObserveStreamError(err error)
}
