// Package sail shells out to the external tools a provisioned project
// depends on: the docker CLI for compose commands and volume cleanup, and a
// Valet compatible proxy (valet or herd) for local domains and HTTPS
// certificates.
//
// Every wrapper is a thin veneer over the tool's own CLI, so behavior stays
// identical to running the same commands by hand. One-off container
// commands run in their own process group and are torn down group-wide on
// cancellation.
package sail
