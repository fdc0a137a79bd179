package driver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"

	"github.com/char5742/ringpad/internal/cancel"
	"github.com/char5742/ringpad/internal/config"
)

func TestTask_UpdateConfigKeepsLatest(t *testing.T) {
	task := New(cancel.NewBus(), config.Default(), nil, DefaultOptions(), zaptest.NewLogger(t))
	first, err := config.Parse("[[keymap]]\nbutton0 = \"a\"\n")
	require.NoError(t, err)
	second, err := config.Parse("[[keymap]]\nbutton0 = \"b\"\n")
	require.NoError(t, err)

	task.UpdateConfig(first)
	task.UpdateConfig(second)

	emitter := &fakeEmitter{}
	remapper := NewRemapper(config.Default(), emitter, zaptest.NewLogger(t))
	task.applyConfig(remapper)
	require.NoError(t, remapper.handle(press(config.Button0)))
	require.Len(t, emitter.calls, 1)
	assert.Equal(t, "b", config.KeyName(emitter.calls[0].keys[0]))

	// 反映済みの設定は二度適用しない
	assert.Empty(t, task.updateConfig)
}

func TestTask_RunCancelledWhileWaitingForDevice(t *testing.T) {
	bus := cancel.NewBus()
	bus.Cancel()
	options := DefaultOptions()
	options.DeviceDir = t.TempDir()

	task := New(bus, config.Default(), nil, options, zaptest.NewLogger(t))
	assert.NoError(t, task.Run())
}

func TestTask_RunMissingDevice(t *testing.T) {
	options := DefaultOptions()
	options.DevicePath = filepath.Join(t.TempDir(), "event0")

	task := New(cancel.NewBus(), config.Default(), nil, options, zaptest.NewLogger(t))
	err := task.Run()
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestPadReader_DeliversTranslatedEvents(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})

	var batch []byte
	batch = append(batch, rawEvent(0, 0, 0x01, 0x100, 1)...) // BTN_0 押下
	batch = append(batch, rawEvent(0, 0, 0x00, 0x00, 0)...)  // SYN_REPORT
	batch = append(batch, rawEvent(0, 0, 0x02, 0x08, -1)...) // REL_WHEEL
	_, err := unix.Write(fds[1], batch)
	require.NoError(t, err)

	var got []padEvent
	r := &padReader{fd: fds[0], buf: make([]byte, 4*inputEventSize)}
	require.NoError(t, r.readAll(func(ev padEvent) error {
		got = append(got, ev)
		return nil
	}))

	assert.Equal(t, []padEvent{
		{input: config.Button0, kind: padPress},
		{input: config.Ring1, kind: padPulse},
	}, got)
}

func TestPadReader_EOFIsDeviceLost(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	t.Cleanup(func() { _ = unix.Close(fds[0]) })
	require.NoError(t, unix.Close(fds[1]))

	r := &padReader{fd: fds[0], buf: make([]byte, inputEventSize)}
	err := r.readAll(func(padEvent) error { return nil })
	assert.ErrorIs(t, err, ErrDeviceLost)
}
