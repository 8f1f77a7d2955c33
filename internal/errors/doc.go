// Package errors provides structured, actionable error messages for berth.
//
// Every failure kind berth can exit with has a registered code that carries
// its category, a plain-language message, a fix suggestion, and the process
// exit status for that kind. Commands report errors through this package so
// that scripts can dispatch on exit statuses while humans get readable
// output.
//
// # Error Categories
//
// Errors are organized into categories:
//   - lock: registry lock acquisition failures
//   - registry: corrupt or unwritable registry files, duplicate records
//   - ports: port allocation exhaustion
//   - project: missing or already-provisioned project files
//   - external: docker and proxy tool failures
//   - config: berth's own configuration file
//   - cli: argument and cancellation errors
//
// # Error Codes
//
// Each error has a unique code (e.g., "E010") that maps to a template with
// a message, a detailed explanation, a documentation URL, and an exit
// status. ExitStatus maps any error back to the status a command should
// exit with.
//
// # Usage
//
//	err := errors.New("E010").
//	    WithLocation("/home/me/.config/berth/registry.conf", 7, 0).
//	    WithSuggestion("Fix or delete the registry file, then re-run berth init")
//
//	errors.PrintError(err)
//	os.Exit(errors.ExitStatus(err))
package errors
