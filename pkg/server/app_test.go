package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seethefuture888888-creator/kangbo/pkg/config"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
	applogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
	"github.com/seethefuture888888-creator/kangbo/pkg/scheduler"
)

type loop struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (l *loop) Run(ctx context.Context) {
	l.started.Store(true)
	<-ctx.Done()
}

func (l *loop) Stop() { l.stopped.Store(true) }

func TestAppRunAndShutdown(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	var runs atomic.Int32
	sched := scheduler.New("dashboard", func(context.Context) error {
		runs.Add(1)
		return nil
	}, time.Hour, nil)

	bg := &loop{}
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	app := New(cfg, applogger.Nop(), sched, srv, bg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() == 1 && bg.started.Load() }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, bg.stopped.Load())
}
