package serviceutil

import (
	"syscall"
	"testing"
	"time"
)

func TestSignalContext(t *testing.T) {
	ctx, cancel := SignalContext()
	defer cancel()

	err := syscall.Kill(syscall.Getpid(), syscall.SIGINT)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGINT")
	}
}
