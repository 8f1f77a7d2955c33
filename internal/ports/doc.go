// Package ports probes and allocates TCP ports for provisioned projects.
//
// Allocation canonicalizes each port variable's declared default into a
// scan base (Canonicalize), then walks upward from it until a port is
// free on the machine and unclaimed in the registry. The prober treats a
// registered port as taken even when its project is stopped, so two
// projects never share a port no matter which of them is running.
package ports
