package metrics

import (
	"errors"
	"io/fs"

	"family-media/internal/filesystem"
)

// libraryObserver records local backend file activity. Path probing stats
// several spellings of the same file, so a missing file is an expected
// answer and is not counted as an operation error.
type libraryObserver struct{}

// NewFilesystemObserver returns the observer main installs with
// filesystem.SetObserver.
func NewFilesystemObserver() filesystem.Observer {
	return libraryObserver{}
}

func (libraryObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	volume = volumeLabel(volume)
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (libraryObserver) ObserveRetryAttempt(retryOp, volume string) {
	FilesystemRetryAttempts.WithLabelValues(retryOp, volumeLabel(volume)).Inc()
}

func (libraryObserver) ObserveRetrySuccess(retryOp, volume string) {
	FilesystemRetrySuccess.WithLabelValues(retryOp, volumeLabel(volume)).Inc()
}

func (libraryObserver) ObserveRetryFailure(retryOp, volume string) {
	FilesystemRetryFailures.WithLabelValues(retryOp, volumeLabel(volume)).Inc()
}

func (libraryObserver) ObserveRetryDuration(retryOp, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(retryOp, volumeLabel(volume)).Observe(durationSeconds)
}

func (libraryObserver) ObserveStaleError(retryOp, volume string) {
	FilesystemStaleErrors.WithLabelValues(retryOp, volumeLabel(volume)).Inc()
}

// volumeLabel maps paths outside media/ and thumbnails/ to "unknown".
func volumeLabel(volume string) string {
	if volume == "" {
		return "unknown"
	}
	return volume
}
