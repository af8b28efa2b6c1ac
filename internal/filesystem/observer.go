package filesystem

// RetryEvent identifies a step of a retried operation.
type RetryEvent int

const (
	RetryAttempt RetryEvent = iota
	RetrySuccess
	RetryFailure
	RetryStale
)

// Observer records filesystem operation metrics. The metrics package
// provides the implementation so filesystem does not import it.
type Observer interface {
	// ObserveOperation records duration and error status for one operation.
	// volume is a label from the VolumeResolver ("media", "database").
	ObserveOperation(volume, operation string, durationSeconds float64, err error)
	ObserveRetry(operation, volume string, event RetryEvent)
	ObserveRetryDuration(operation, volume string, durationSeconds float64)
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer. Nil disables
// recording, which is what tests use.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observeRetry(op, volume string, event RetryEvent) {
	if defaultObserver != nil {
		defaultObserver.ObserveRetry(op, volume, event)
	}
}

func observeDone(op, volume string, seconds float64, err error) {
	if defaultObserver == nil {
		return
	}
	defaultObserver.ObserveRetryDuration(op, volume, seconds)
	defaultObserver.ObserveOperation(volume, op, seconds, err)
}
