package main

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunFlushesLogWhenListenFails(t *testing.T) {
	// 占用端口，让 ListenAndServe 失败
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	logPath := filepath.Join(t.TempDir(), "arena.log")
	t.Setenv("ARENA_LOG_FILE", logPath)
	t.Setenv("ARENA_DB_PATH", filepath.Join(t.TempDir(), "rooms.db"))

	done := make(chan int, 1)
	go func() { done <- run([]string{"-addr", ln.Addr().String()}, make(chan os.Signal)) }()

	select {
	case code := <-done:
		if code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after listen failure")
	}

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "listen:") {
		t.Fatalf("listen failure not flushed to log:\n%s", b)
	}
}

func TestRunStopsOnSignal(t *testing.T) {
	t.Setenv("ARENA_LOG_FILE", filepath.Join(t.TempDir(), "arena.log"))
	t.Setenv("ARENA_DB_PATH", "")

	quit := make(chan os.Signal, 1)
	done := make(chan int, 1)
	go func() { done <- run([]string{"-addr", "127.0.0.1:0"}, quit) }()
	quit <- os.Interrupt

	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("exit code = %d, want 0", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after signal")
	}
}
