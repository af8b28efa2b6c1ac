package metrics

import "media-catalog/internal/filesystem"

// filesystemObserver records filesystem events into the Filesystem* metrics.
type filesystemObserver struct{}

// NewFilesystemObserver returns the observer to pass to
// filesystem.SetObserver at startup.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (filesystemObserver) ObserveRetry(op, volume string, event filesystem.RetryEvent) {
	switch event {
	case filesystem.RetryAttempt:
		FilesystemRetryAttempts.WithLabelValues(op, volume).Inc()
	case filesystem.RetrySuccess:
		FilesystemRetrySuccess.WithLabelValues(op, volume).Inc()
	case filesystem.RetryFailure:
		FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
	case filesystem.RetryStale:
		FilesystemStaleErrors.WithLabelValues(op, volume).Inc()
	}
}

func (filesystemObserver) ObserveRetryDuration(op, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(op, volume).Observe(durationSeconds)
}
