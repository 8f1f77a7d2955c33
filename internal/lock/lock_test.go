package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/berth-dev/berth/internal/errors"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	lk, err := Acquire(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !lk.Held() {
		t.Error("Held() should be true after Acquire")
	}

	holder, err := ReadHolder(path)
	if err != nil {
		t.Fatalf("ReadHolder: %v", err)
	}
	if holder.PID != os.Getpid() {
		t.Errorf("holder.PID = %d, want %d", holder.PID, os.Getpid())
	}
	if holder.Acquired.IsZero() {
		t.Error("holder.Acquired should be set")
	}

	if err := lk.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if lk.Held() {
		t.Error("Held() should be false after Release")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file should be gone after Release")
	}
}

func TestAcquire_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.lock")

	lk, err := Acquire(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lk.Release()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	lk, err := Acquire(context.Background(), path, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if err := lk.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := lk.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestRelease_FileAlreadyRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	lk, err := Acquire(context.Background(), path, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Someone removed the lock file by hand
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := lk.Release(); err != nil {
		t.Fatalf("Release after manual removal: %v", err)
	}
}

func TestAcquire_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	first, err := Acquire(context.Background(), path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	start := time.Now()
	_, err = Acquire(context.Background(), path, Options{
		Timeout: 150 * time.Millisecond,
		Poll:    20 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("second Acquire should time out")
	}
	if !errors.Is(err, "E001") {
		t.Errorf("error = %v, want E001", err)
	}
	if errors.ExitStatus(err) != 9 {
		t.Errorf("ExitStatus = %d, want 9", errors.ExitStatus(err))
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("timed out after %v, before the timeout elapsed", elapsed)
	}

	// The timeout error names the holder
	be := err.(*errors.BerthError)
	if be.Detail == "" {
		t.Error("timeout error should carry lock detail")
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	first, err := Acquire(context.Background(), path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Acquire(ctx, path, Options{Timeout: 5 * time.Second, Poll: 20 * time.Millisecond})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if errors.ExitStatus(err) != 130 {
			t.Errorf("ExitStatus = %d, want 130", errors.ExitStatus(err))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")

	first, err := Acquire(context.Background(), path, Options{})
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		first.Release()
	}()

	second, err := Acquire(context.Background(), path, Options{
		Timeout: 2 * time.Second,
		Poll:    20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Acquire should succeed once the holder releases: %v", err)
	}
	second.Release()
}

func TestReadHolder_IgnoresGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.lock")
	content := "pid=421\nsomething odd\nhost=devbox\nacquired_at=2026-08-25T10:00:00Z\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	holder, err := ReadHolder(path)
	if err != nil {
		t.Fatal(err)
	}
	if holder.PID != 421 || holder.Host != "devbox" {
		t.Errorf("holder = %+v", holder)
	}
	if holder.Acquired.IsZero() {
		t.Error("acquired_at should parse")
	}
}
