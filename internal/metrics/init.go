package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Database storage ---
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"initialize_schema", "upsert_object", "find_by_path", "get_object",
		"resolve_chain", "add_entry", "delete_entries", "delete_missing", "prune_containers",
		"list_children", "list_entries", "stats", "begin_transaction", "commit", "rollback"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	// --- Filesystem (per volume x operation) ---
	volumes := []string{"media", "database", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- Catalog content ---
	for _, t := range []string{"audio", "video", "image", "playlist"} {
		CatalogObjectsTotal.WithLabelValues(t)
		MetadataExtractDuration.WithLabelValues(t)
		for _, result := range []string{"imported", "unchanged", "skipped", "error"} {
			ImportsTotal.WithLabelValues(t, result)
		}
		LayoutClassifyDuration.WithLabelValues(t)
	}

	for _, outcome := range []string{"hit", "imported", "absent"} {
		ResolverLookupsTotal.WithLabelValues(outcome)
	}

	for _, rule := range []string{"album", "artist", "genre", "track", "year", "video", "image"} {
		LayoutPlacementsTotal.WithLabelValues(rule)
	}

	// --- Playlists ---
	for _, result := range []string{"ok", "recursion", "unsupported", "open_error", "evaluation_error", "shutdown"} {
		PlaylistSessionsTotal.WithLabelValues(result)
	}
	PlaylistGCRequests.WithLabelValues("success")
	PlaylistGCRequests.WithLabelValues("error")
}
