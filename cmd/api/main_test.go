package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestRunServerStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRootCommandHasMigrate(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"migrate"})
	if err != nil {
		t.Fatalf("find migrate: %v", err)
	}
	if cmd.Name() != "migrate" {
		t.Fatalf("unexpected command %q", cmd.Name())
	}
}

func TestRunServerReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	if err := runServer(context.Background(), srv); err == nil {
		t.Fatal("expected address-in-use error")
	}
}
