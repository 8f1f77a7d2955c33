package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/berth-dev/berth/internal/errors"
)

const (
	// DefaultTimeout is how long Acquire waits before giving up.
	DefaultTimeout = 10 * time.Second

	// DefaultPoll is how often Acquire retries while waiting.
	DefaultPoll = 100 * time.Millisecond
)

// Lock is a held registry lock. It must be released exactly by the
// process that acquired it; Release is safe to call more than once.
type Lock struct {
	path string

	mu   sync.Mutex
	held bool
}

// Options configures Acquire.
type Options struct {
	// Timeout is the total time to wait for the lock. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// Poll is the retry interval while waiting. Zero means DefaultPoll.
	Poll time.Duration
}

// Holder describes the process that wrote a lock file.
type Holder struct {
	PID      int
	Host     string
	Acquired time.Time
}

// Acquire takes the lock at path, waiting up to the configured timeout
// for another holder to release it. The lock file is created with
// O_CREATE|O_EXCL, so exactly one process can hold it; creation and the
// existence check are a single atomic step.
func Acquire(ctx context.Context, path string, opts Options) (*Lock, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Newf(errors.CategoryLock, "could not create lock directory: %v", err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		lk, err := tryAcquire(path)
		if err == nil {
			return lk, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Newf(errors.CategoryLock, "could not create lock file %s: %v", path, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, timeoutError(path)
		case <-ticker.C:
		}
	}
}

// tryAcquire makes one attempt to create the lock file.
func tryAcquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}

	host, _ := os.Hostname()
	fmt.Fprintf(f, "pid=%d\nhost=%s\nacquired_at=%s\n",
		os.Getpid(), host, time.Now().UTC().Format(time.RFC3339))
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}

	return &Lock{path: path, held: true}, nil
}

// timeoutError builds the lock-timeout error, naming the current holder
// when the lock file can be read.
func timeoutError(path string) error {
	err := errors.New("E001").
		WithDetail("Lock file: " + path).
		WithSuggestion("If no berth process is running, remove the lock file by hand").
		WithExample("rm " + path)
	if holder, herr := ReadHolder(path); herr == nil {
		err = err.WithDetailf("Lock file: %s (held by pid %d on %s since %s)",
			path, holder.PID, holder.Host, holder.Acquired.Format(time.RFC3339))
	}
	return err
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file. It is idempotent: releasing an already
// released lock, or one whose file was removed by hand, is not an error.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Newf(errors.CategoryLock, "could not remove lock file %s: %v", l.path, err)
	}
	return nil
}

// Held reports whether this process still holds the lock.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// ReadHolder parses the metadata written into a lock file.
func ReadHolder(path string) (*Holder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	holder := &Holder{}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			holder.PID, _ = strconv.Atoi(value)
		case "host":
			holder.Host = value
		case "acquired_at":
			holder.Acquired, _ = time.Parse(time.RFC3339, value)
		}
	}
	return holder, nil
}
