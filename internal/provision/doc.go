// Package provision orchestrates the project lifecycle: the preflight
// checks, port allocation, proxy registration, registry save, and env
// rewrite behind berth init, and the reverse teardown behind berth cleanup.
//
// The registry lock is held only between load and save. External side
// effects (proxy links, certificates, containers) are best-effort in both
// directions; the registry and the env file are the durable state.
package provision
