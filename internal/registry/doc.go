// Package registry implements the shared project registry.
//
// The registry is one plain-text file listing every project berth has
// provisioned on this machine, with the ports, domain, and proxy details
// each one holds. Every berth invocation loads it, and mutating commands
// rewrite it under the cross-process lock.
//
// # File Format
//
// The format is line-oriented and INI-like:
//
//	[_home_me_src_shop]
//	path=/home/me/src/shop
//	domain=shop.test
//	proxy_service=laravel.test
//	proxy_secure=true
//	APP_PORT=8000
//	VITE_PORT=5100
//
// Keys ending in _PORT are port allocations. Unknown keys are preserved
// across load and save. Parsing is strict: any line that is neither a
// [section] header nor a key=value pair corrupts the registry, as do
// duplicate sections, duplicate keys, out-of-range ports, and records
// that violate the invariants below.
//
// # Invariants
//
//   - Record names are unique.
//   - Every allocated port is unique across all records.
//   - domain and proxy_service are set together or not at all, and
//     proxy_secure requires a domain.
//
// # Atomicity
//
// Save serializes deterministically (sorted records, fixed key order)
// and writes through a temp file in the registry directory followed by a
// rename. The serialized form round-trips: parsing a saved registry and
// saving it again produces identical bytes.
//
// # Reconciliation
//
// Reconcile prunes records whose project directory has been deleted,
// asking injected ProxyRemover and VolumeRemover implementations to
// clean up what the record left behind. See reconcile.go.
package registry
