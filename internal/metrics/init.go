package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(storageBackend, lockBackend string) {
	for _, op := range []string{"exists", "properties", "download", "open", "upload", "signed_url"} {
		for _, status := range []string{"success", "not_found", "error", "rejected"} {
			StorageOperationsTotal.WithLabelValues(storageBackend, op, status)
		}
		StorageOperationDuration.WithLabelValues(storageBackend, op)
	}
	for _, dir := range []string{"download", "upload"} {
		StorageBytesTransferred.WithLabelValues(storageBackend, dir)
	}
	StorageBreakerState.WithLabelValues(storageBackend)

	volumes := []string{"media", "thumbnails", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"read", "open", "write", "stat"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, r := range []string{"resolved", "not_found"} {
		ResolutionsTotal.WithLabelValues(r)
	}

	GenerationLockWait.WithLabelValues(lockBackend)
	GenerationLockTimeouts.WithLabelValues(lockBackend)

	for _, t := range []string{"image", "video"} {
		for _, o := range []string{"reused", "generated", "placeholder", "fallback_original", "error"} {
			ThumbnailOutcomesTotal.WithLabelValues(t, o)
		}
		ThumbnailGenerationDuration.WithLabelValues(t)
	}

	for _, status := range []string{"200", "206", "302", "416"} {
		for _, t := range []string{"image", "video", "other"} {
			StreamResponsesTotal.WithLabelValues(status, t)
		}
	}

	for _, r := range []string{"allowed", "unauthorized", "forbidden"} {
		AuthDecisionsTotal.WithLabelValues(r)
	}
}
