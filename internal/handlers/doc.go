// Package handlers provides the HTTP handlers of the catalog API.
//
// It includes handlers for:
//   - Health, liveness and readiness probes and build information
//   - Catalog statistics and the last index run
//   - Browsing containers and objects of the virtual tree
//   - Importing a single path and triggering a full re-index
//   - Dry-running the layout rules against a posted record
package handlers
