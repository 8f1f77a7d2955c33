// Package dashboard implements berth serve: a local web view of the
// project registry with an HTML overview page, a JSON API, prometheus
// metrics, and a websocket feed that refreshes open pages when the
// registry file changes.
package dashboard
