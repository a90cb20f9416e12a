// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPServer blocks in ListenAndServe until Shutdown is called.
type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	stopped     chan struct{}
	shutdowns   int
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stopped: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopped
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdowns++
	close(m.stopped)
	return m.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	mock := newMockHTTPServer()
	svc := NewHTTPServerService(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, mock.shutdowns)
	case <-time.After(time.Second):
		t.Fatal("service did not stop after cancel")
	}
}

func TestHTTPServiceListenFailure(t *testing.T) {
	mock := newMockHTTPServer()
	mock.listenErr = errors.New("bind: address already in use")
	svc := NewHTTPServerService(mock, time.Second)

	err := svc.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestHTTPServiceName(t *testing.T) {
	assert.Equal(t, "http-server", NewHTTPServerService(newMockHTTPServer(), 0).String())
}
