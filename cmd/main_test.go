package main

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeServer struct {
	startErr error
	stopped  chan struct{}
	stops    int
}

func newFakeServer(startErr error) *fakeServer {
	return &fakeServer{startErr: startErr, stopped: make(chan struct{})}
}

func (f *fakeServer) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return nil
}

func (f *fakeServer) Stop() error {
	f.stops++
	close(f.stopped)
	return nil
}

func TestServeReturnsStartFailure(t *testing.T) {
	srv := newFakeServer(errors.New("address already in use"))
	err := serve(srv, make(chan os.Signal), zap.NewNop())
	require.EqualError(t, err, "address already in use")
	require.Zero(t, srv.stops)
}

func TestServeStopsOnSignal(t *testing.T) {
	srv := newFakeServer(nil)
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM
	require.NoError(t, serve(srv, quit, zap.NewNop()))
	require.Equal(t, 1, srv.stops)
}
