/*
Package filesystem wraps os.Stat, os.Open and os.ReadDir with retries for NFS
stale file handle errors (ESTALE).

Media libraries are often mounted over NFS. A file handle can go stale when
the server side changes, and the next attempt usually succeeds, so ESTALE is
retried with exponential backoff. Every other error is returned at once.

	info, err := filesystem.StatWithRetry(ctx, path, filesystem.DefaultRetryConfig())

Backoff sleeps stop early when ctx is done.

# Metrics

Operations are labeled with a volume name from a VolumeResolver and reported
through an Observer. The metrics package supplies the Observer:

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
	    "media":    cfg.MediaDir,
	    "database": cfg.DatabaseDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
*/
package filesystem
