package config

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/char5742/ringpad/internal/cancel"
	"github.com/char5742/ringpad/internal/loop"
)

// DefaultDebounce は連続した書き込みをまとめるための待ち時間
const DefaultDebounce = 500 * time.Millisecond

// ErrNoFileName は設定ファイルのパスからファイル名を取り出せないことを表す
var ErrNoFileName = errors.New("設定ファイルのパスからファイル名を取得できません")

// ReloadCallback は再読み込みに成功した設定を受け取る
type ReloadCallback func(cfg *Config)

// WatcherOption は Watcher の動作を変更する
type WatcherOption func(*Watcher)

// WithDebounce は書き込みをまとめる待ち時間を変更する
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// Watcher は設定ファイルの変更を監視し、変更後の設定をコールバックに渡す
// エディタは一時ファイルからのリネームで保存することが多いため、ファイルではなく親ディレクトリを監視する
type Watcher struct {
	path      string
	filename  string
	inotifyFd int
	loop      *loop.Loop
	debounce  time.Duration
	callbacks []ReloadCallback
	buf       []byte
	logger    *zap.Logger
}

// NewWatcher は path の設定ファイルを監視する Watcher を作成する
func NewWatcher(path string, bus *cancel.Bus, logger *zap.Logger, opts ...WatcherOption) (*Watcher, error) {
	filename := filepath.Base(path)
	if path == "" || strings.HasSuffix(path, string(filepath.Separator)) ||
		filename == "." || filename == ".." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: %q", ErrNoFileName, path)
	}
	dir := filepath.Dir(path)

	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, dir, unix.IN_MODIFY|unix.IN_CREATE|unix.IN_MOVED_TO); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch(%s): %w", dir, err)
	}

	l, err := loop.New(bus, logger)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	w := &Watcher{
		path:      path,
		filename:  filename,
		inotifyFd: fd,
		loop:      l,
		debounce:  DefaultDebounce,
		buf:       make([]byte, 64*1024),
		logger:    logger.With(zap.String("path", path)),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := l.Add(fd, w.handleEvents); err != nil {
		_ = w.Close()
		return nil, err
	}

	w.logger.Debug("設定ファイルの監視を準備しました", zap.String("dir", dir))
	return w, nil
}

// RegisterCallback は再読み込み成功時のコールバックを登録する
// Run を開始する前に呼ばなければならない
func (w *Watcher) RegisterCallback(f ReloadCallback) {
	w.callbacks = append(w.callbacks, f)
}

// Run はキャンセルされるまで設定ファイルを監視する
// 終了時に監視用のディスクリプタを閉じる
func (w *Watcher) Run() error {
	defer w.Close()

	w.logger.Info("設定ファイルの監視を開始します")
	if err := w.loop.Run(); err != nil {
		return err
	}
	w.logger.Info("設定ファイルの監視を終了します")
	return nil
}

// Close は Watcher が持つディスクリプタを解放する
func (w *Watcher) Close() error {
	if w.inotifyFd < 0 {
		return nil
	}
	err := multierr.Combine(w.loop.Close(), unix.Close(w.inotifyFd))
	w.inotifyFd = -1
	return err
}

func (w *Watcher) handleEvents() error {
	names, err := w.drain()
	if err != nil {
		return err
	}
	touched := false
	for _, name := range names {
		if name == w.filename {
			touched = true
			break
		}
	}
	if !touched {
		return nil
	}

	// 保存時の一連の書き込みが落ち着くまで待ち、その間のイベントは同じ変更として捨てる
	time.Sleep(w.debounce)
	if _, err := w.drain(); err != nil {
		return err
	}

	w.reload()
	return nil
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("設定ファイルを再読み込みできないため、今回の変更を無視します", zap.Error(err))
		return
	}

	if len(cfg.Ignored) > 0 {
		w.logger.Warn("設定ファイルに未知の項目があります", zap.Strings("keys", cfg.Ignored))
	}
	w.logger.Info("設定ファイルを再読み込みしました", zap.Int("keymaps", len(cfg.Keymaps)))
	for _, callback := range w.callbacks {
		callback(cfg)
	}
}

// drain は読み込めるだけの inotify イベントを読み、イベントの対象ファイル名を返す
func (w *Watcher) drain() ([]string, error) {
	var names []string
	for {
		n, err := unix.Read(w.inotifyFd, w.buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("inotifyイベントの読み込みに失敗しました: %w", err)
		}
		if n <= 0 {
			return names, nil
		}
		names = append(names, parseInotifyNames(w.buf[:n])...)
	}
}

// parseInotifyNames は inotify_event の並びからファイル名を取り出す
func parseInotifyNames(buf []byte) []string {
	var names []string
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		nameLen := int(binary.NativeEndian.Uint32(buf[off+12 : off+16]))
		start := off + unix.SizeofInotifyEvent
		end := start + nameLen
		if end > len(buf) {
			break
		}
		if nameLen > 0 {
			names = append(names, string(bytes.TrimRight(buf[start:end], "\x00")))
		}
		off = end
	}
	return names
}
