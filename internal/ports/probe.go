package ports

import (
	"fmt"
	"net"
	"time"

	"github.com/berth-dev/berth/internal/registry"
)

// DefaultDialTimeout bounds the connect probe. Anything listening
// locally answers far faster than this.
const DefaultDialTimeout = 250 * time.Millisecond

// Prober decides whether a TCP port can be allocated.
type Prober struct {
	// DialTimeout bounds the connect probe.
	DialTimeout time.Duration

	dial   func(network, addr string, timeout time.Duration) (net.Conn, error)
	listen func(network, addr string) (net.Listener, error)
}

// NewProber returns a Prober backed by the real network.
func NewProber() *Prober {
	return &Prober{
		DialTimeout: DefaultDialTimeout,
		dial:        net.DialTimeout,
		listen:      net.Listen,
	}
}

// Available reports whether a port may be allocated. A port is taken if
// any registry record claims it, if something accepts connections on it,
// or if binding it fails. A registered port counts as taken even when
// its project is not running.
func (p *Prober) Available(reg *registry.Registry, port int) bool {
	if reg != nil {
		if _, claimed := reg.PortOwner(port); claimed {
			return false
		}
	}

	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	if conn, err := p.dial("tcp", fmt.Sprintf("localhost:%d", port), timeout); err == nil {
		conn.Close()
		return false
	}

	// Dial misses listeners in some socket states; a bind attempt sees
	// them.
	ln, err := p.listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
