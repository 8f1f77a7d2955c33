package ports

import (
	"strconv"
	"strings"

	"github.com/berth-dev/berth/internal/errors"
	"github.com/berth-dev/berth/internal/registry"
)

// MaxScan is the number of candidate ports examined for one variable.
const MaxScan = 10000

// MaxPort is the top of the TCP port range; the scan never goes past it.
const MaxPort = 65535

// Canonicalize maps a declared default port to the base of its scan
// range. The mapping works on the decimal digits and is kept exactly as
// projects already provisioned expect it:
//
//	80    -> 8000
//	100   -> 10000
//	3306  -> 3300
//	5173  -> 5100
//	8000  -> 8000
//	65535 -> 65500
//
// Multiples of 100 with at least four digits pass through unchanged.
func Canonicalize(port int) int {
	s := strconv.Itoa(port)
	if len(s) >= 4 && strings.HasSuffix(s, "00") {
		return port
	}
	switch {
	case len(s) == 1:
		s += "000"
	case len(s) <= 3:
		s += "00"
	case len(s) == 4:
		s = s[:2] + "00"
	default:
		return port / 100 * 100
	}
	n, _ := strconv.Atoi(s)
	return n
}

// Request names one port variable and its declared default.
type Request struct {
	Name    string
	Default int
}

// Allocator assigns ports by canonicalizing each default and scanning
// upward for the first available port.
type Allocator struct {
	Prober *Prober

	// MaxScan overrides the per-variable candidate budget. Zero means
	// the package default.
	MaxScan int
}

// NewAllocator returns an Allocator backed by the real network.
func NewAllocator() *Allocator {
	return &Allocator{Prober: NewProber()}
}

// Allocate finds the first available port for one request. Ports in
// taken are treated as unavailable; callers pass what they allocated
// earlier in the same run.
func (a *Allocator) Allocate(reg *registry.Registry, req Request, taken map[int]bool) (int, error) {
	base := Canonicalize(req.Default)
	maxScan := a.MaxScan
	if maxScan <= 0 {
		maxScan = MaxScan
	}

	for i := 0; i < maxScan; i++ {
		candidate := base + i
		if candidate > MaxPort {
			break
		}
		if candidate < 1 || taken[candidate] {
			continue
		}
		if !a.Prober.Available(reg, candidate) {
			continue
		}
		return candidate, nil
	}

	return 0, errors.New("E020").
		WithDetailf("No free port for %s (default %d): scanned up to %d candidates from %d.",
			req.Name, req.Default, maxScan, base).
		WithSuggestion("Run berth cleanup for projects you no longer use, or stop whatever is holding these ports")
}

// AllocateAll assigns a port for every request, in order. Requests keep
// their order so repeated runs over the same compose file make the same
// decisions.
func (a *Allocator) AllocateAll(reg *registry.Registry, reqs []Request) (map[string]int, error) {
	allocated := make(map[string]int, len(reqs))
	taken := make(map[int]bool, len(reqs))

	for _, req := range reqs {
		port, err := a.Allocate(reg, req, taken)
		if err != nil {
			return nil, err
		}
		allocated[req.Name] = port
		taken[port] = true
	}
	return allocated, nil
}
