// Package loop は OS のレディネス通知とキャンセルを一つの epoll で待ち合わせるイベントループを提供する
package loop

import (
	"fmt"
	"runtime"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/char5742/ringpad/internal/cancel"
)

// Handler はソースが読み込み可能になったときに呼ばれる
// エラーを返すとループはそのエラーで終了する
type Handler func() error

const cancelToken Token = 0

// Loop はキャンセル用の eventfd と任意個のドメインソースを一つの Poller で待つ
type Loop struct {
	poller   *Poller
	wake     *EventFD
	handlers []Handler
}

// New はキャンセル用 eventfd を bus に登録したループを作成する
func New(bus *cancel.Bus, logger *zap.Logger) (*Loop, error) {
	poller, err := NewPoller()
	if err != nil {
		return nil, err
	}
	wake, err := NewEventFD(logger)
	if err != nil {
		_ = poller.Close()
		return nil, err
	}
	if err := poller.Add(wake.Fd(), cancelToken); err != nil {
		_ = wake.Close()
		_ = poller.Close()
		return nil, err
	}
	bus.Register(wake)

	return &Loop{
		poller: poller,
		wake:   wake,
	}, nil
}

// Add は fd を登録し、読み込み可能になるたびに h を呼ぶ
// Run の開始前に呼ばなければならない
func (l *Loop) Add(fd int, h Handler) error {
	token := Token(len(l.handlers) + 1)
	if err := l.poller.Add(fd, token); err != nil {
		return err
	}
	l.handlers = append(l.handlers, h)
	return nil
}

// Run はキャンセルされるかハンドラがエラーを返すまでブロックする
// キャンセルによる終了は nil を返す
func (l *Loop) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		token, err := l.poller.Wait()
		if err != nil {
			return err
		}
		if token == cancelToken {
			return nil
		}
		idx := int(token) - 1
		if idx < 0 || idx >= len(l.handlers) {
			panic(fmt.Sprintf("loop: unknown epoll token %d", token))
		}
		if err := l.handlers[idx](); err != nil {
			return err
		}
	}
}

// Close はループが所有するディスクリプタを解放する
// 登録済みソースの fd は呼び出し側が閉じる
func (l *Loop) Close() error {
	return multierr.Combine(l.wake.Close(), l.poller.Close())
}
