package exitsignal

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/char5742/ringpad/internal/cancel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("os/signal.signal_recv"), goleak.IgnoreTopFunction("os/signal.loop"))
}

func waitAsync(w *Watcher) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Wait() }()
	return done
}

func TestWatcher_SIGTERMCancelsBus(t *testing.T) {
	bus := cancel.NewBus()
	observed := 0
	bus.RegisterFunc(func() { observed++ })

	w := New(bus, zaptest.NewLogger(t))
	done := waitAsync(w)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after SIGTERM")
	}
	assert.True(t, bus.Cancelled())
	assert.Equal(t, 1, observed)

	bus.Cancel()
	assert.Equal(t, 1, observed)
}

func TestWatcher_LaterSignalsIgnoredAfterShutdownStarts(t *testing.T) {
	bus := cancel.NewBus()
	w := New(bus, zaptest.NewLogger(t))
	done := waitAsync(w)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after SIGINT")
	}

	// 既定の動作に戻っていればここでプロセスが終了する
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))
	time.Sleep(200 * time.Millisecond)

	assert.True(t, bus.Cancelled())
}

func TestWatcher_ReturnsOnCancel(t *testing.T) {
	bus := cancel.NewBus()
	w := New(bus, zaptest.NewLogger(t))
	done := waitAsync(w)

	bus.Cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestWatcher_SingleUse(t *testing.T) {
	bus := cancel.NewBus()
	bus.Cancel()
	w := New(bus, zaptest.NewLogger(t))

	require.NoError(t, w.Wait())
	assert.ErrorIs(t, w.Wait(), ErrAlreadyWaited)
}
