// Package middleware provides the HTTP middleware of the catalog API:
// request logging in W3C Extended Log Format and Prometheus request
// metrics labelled by route template.
package middleware
