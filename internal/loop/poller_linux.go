package loop

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Token は Poller に登録したソースを識別する値
type Token int32

// Poller は epoll(7) による待ち合わせを行う
// レベルトリガで登録するため、一度の Wait で返すのは準備のできたソース一つだけでよい
type Poller struct {
	epfd   int
	events [1]unix.EpollEvent
}

// NewPoller は epoll インスタンスを作成する
func NewPoller() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Poller{epfd: epfd}, nil
}

// Add は読み込み可能になったときに token を返すよう fd を登録する
func (p *Poller) Add(fd int, token Token) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(token),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl(ADD, fd=%d): %w", fd, err)
	}
	return nil
}

// Wait はいずれかのソースが準備できるまでタイムアウトなしでブロックする
func (p *Poller) Wait() (Token, error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.events[:], -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("epoll_wait: %w", err)
		}
		if n == 0 {
			continue
		}
		return Token(p.events[0].Fd), nil
	}
}

// Close は epoll インスタンスを閉じる
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}
