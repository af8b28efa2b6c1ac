/*
Package workers sizes the importer's worker pools.

The counts are derived from GOMAXPROCS rather than runtime.NumCPU, so a
container with a CPU limit gets a pool sized to that limit and not to the
host.

	n := workers.ForIO(16)   // 2 workers per CPU, at most 16
	n := workers.ForMixed(8) // 1.5 workers per CPU, at most 8

Importing a file reads a tag header and writes a handful of catalog rows,
which makes the importer a mixed workload; ForImport is the helper the
server uses for it.

Operators can pin the count with the IMPORT_WORKERS environment variable.
The override is still capped by the caller's limit, and values that are not
positive integers are ignored.
*/
package workers
