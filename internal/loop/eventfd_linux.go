package loop

import (
	"encoding/binary"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// EventFD は別スレッドから起こせる eventfd(2)
// cancel.Listener を満たすので、Bus に登録するとキャンセル時に読み込み可能になる
type EventFD struct {
	mutex  sync.Mutex
	fd     int
	closed bool
	logger *zap.Logger
}

// NewEventFD は値0、ノンブロッキングのセマフォ型 eventfd を作成する
func NewEventFD(logger *zap.Logger) (*EventFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC|unix.EFD_SEMAPHORE)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	return &EventFD{fd: fd, logger: logger}, nil
}

// Fd は Poller に登録するためのファイルディスクリプタを返す
func (e *EventFD) Fd() int {
	return e.fd
}

// Notify はカウンタに1を加え、待機中のループを起こす
// Close 後の呼び出しは何もしない
func (e *EventFD) Notify() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(e.fd, buf[:]); err != nil {
		e.logger.Error("eventfdへの書き込みでループを起こせませんでした", zap.Error(err))
	}
}

// Close は eventfd を閉じる
func (e *EventFD) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return unix.Close(e.fd)
}
