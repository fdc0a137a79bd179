package driver

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/char5742/ringpad/internal/cancel"
	"github.com/char5742/ringpad/internal/config"
	"github.com/char5742/ringpad/internal/loop"
)

// ErrDeviceLost はパッドデバイスが取り外されたことを表す
var ErrDeviceLost = errors.New("パッドデバイスが取り外されました")

// Options はデバイスの場所を指定する
type Options struct {
	DevicePath string // 空ならDeviceDirから探す
	UinputPath string
	DeviceDir  string
}

// DefaultOptions はデフォルトのデバイスの場所を返す
func DefaultOptions() Options {
	return Options{
		UinputPath: "/dev/uinput",
		DeviceDir:  "/dev/input/by-id",
	}
}

// Task はパッドの入力を変換し続けるタスク
type Task struct {
	bus          *cancel.Bus
	cfg          *config.Config
	options      Options
	updateConfig chan *config.Config
	logger       *zap.Logger
}

// New は Task を作成する
// watcher が nil でなければ、再読み込みされた設定を受け取るコールバックを登録する
func New(bus *cancel.Bus, cfg *config.Config, watcher *config.Watcher, options Options, logger *zap.Logger) *Task {
	t := &Task{
		bus:          bus,
		cfg:          cfg,
		options:      options,
		updateConfig: make(chan *config.Config, 1),
		logger:       logger,
	}
	if watcher != nil {
		watcher.RegisterCallback(t.UpdateConfig)
	}
	return t
}

// UpdateConfig は設定を更新する
// 反映は次の入力を処理するときに行い、未反映の設定は新しい設定で置き換える
func (t *Task) UpdateConfig(cfg *config.Config) {
	select {
	case t.updateConfig <- cfg:
	default:
		select {
		case <-t.updateConfig:
		default:
		}
		t.updateConfig <- cfg
	}
}

// Run はキャンセルされるまでパッドの入力を変換する
func (t *Task) Run() (err error) {
	path, err := t.devicePath()
	if err != nil || path == "" {
		return err
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("パッドデバイスのオープンに失敗しました[path=%s]: %w", path, err)
	}
	defer func() { err = multierr.Append(err, unix.Close(fd)) }()

	// 元のキー入力がアプリケーションに届かないよう専有する
	if err := ioctl(uintptr(fd), evIOCGrab, 1); err != nil {
		return fmt.Errorf("パッドデバイスの専有に失敗しました[path=%s]: %w", path, err)
	}
	defer func() { _ = ioctl(uintptr(fd), evIOCGrab, 0) }()

	keyboard, err := createKeyboard(t.options.UinputPath, "ringpad virtual keyboard", config.KeyCodes())
	if err != nil {
		return fmt.Errorf("仮想キーボードの作成に失敗しました: %w", err)
	}
	defer func() { err = multierr.Append(err, keyboard.Close()) }()

	remapper := NewRemapper(t.cfg, keyboard, t.logger)
	defer func() { err = multierr.Append(err, remapper.ReleaseAll()) }()

	l, err := loop.New(t.bus, t.logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, l.Close()) }()

	r := &padReader{fd: fd, buf: make([]byte, 64*inputEventSize)}
	if err := l.Add(fd, func() error {
		t.applyConfig(remapper)
		return r.readAll(remapper.handle)
	}); err != nil {
		return err
	}

	t.logger.Info("パッドの入力の変換を開始します", zap.String("device", path))
	if err := l.Run(); err != nil {
		return err
	}
	t.logger.Info("パッドの入力の変換を終了します")
	return nil
}

func (t *Task) devicePath() (string, error) {
	if t.options.DevicePath != "" {
		return t.options.DevicePath, nil
	}
	path, err := findPad(t.options.DeviceDir)
	if errors.Is(err, ErrNoPad) {
		return waitForPad(t.bus, t.options.DeviceDir, t.logger)
	}
	return path, err
}

func (t *Task) applyConfig(remapper *Remapper) {
	select {
	case cfg := <-t.updateConfig:
		remapper.SetConfig(cfg)
		t.logger.Info("設定を更新しました", zap.Int("keymaps", len(cfg.Keymaps)))
	default:
	}
}

// padReader はノンブロッキングのデバイスから読めるだけのイベントを読む
type padReader struct {
	fd    int
	buf   []byte
	trans translator
}

func (r *padReader) readAll(handle func(padEvent) error) error {
	for {
		n, err := unix.Read(r.fd, r.buf)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil
		case errors.Is(err, unix.ENODEV):
			return ErrDeviceLost
		case err != nil:
			return fmt.Errorf("パッドデバイスの読み込みに失敗しました: %w", err)
		case n == 0:
			return ErrDeviceLost
		}
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			ev, ok := r.trans.translate(decodeEvent(r.buf[off : off+inputEventSize]))
			if !ok {
				continue
			}
			if err := handle(ev); err != nil {
				return err
			}
		}
	}
}
