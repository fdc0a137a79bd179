package cancel

import "sync"

// Listener はキャンセル時に一度だけ通知を受け取る
// Notify はキャンセルを呼び出したゴルーチン上で、Bus のロックを保持したまま呼ばれるため
// 短時間で終わるノンブロッキングな処理でなければならない
type Listener interface {
	Notify()
}

// ListenerFunc は任意の関数を Listener として扱うためのアダプタ
type ListenerFunc func()

func (f ListenerFunc) Notify() { f() }

// Bus はプロセス全体で共有されるキャンセルフラグとリスナーの一覧
type Bus struct {
	mutex     sync.Mutex
	cancelled bool
	listeners []Listener
	done      chan struct{}
}

// NewBus は未キャンセル状態の Bus を作成する
func NewBus() *Bus {
	b := &Bus{done: make(chan struct{})}
	b.listeners = append(b.listeners, ListenerFunc(func() { close(b.done) }))
	return b
}

// Register はリスナーを登録する
// すでにキャンセル済みの場合は登録せず、その場でリスナーを呼び出す
func (b *Bus) Register(l Listener) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.cancelled {
		l.Notify()
		return
	}
	b.listeners = append(b.listeners, l)
}

// RegisterFunc は関数をリスナーとして登録する
func (b *Bus) RegisterFunc(f func()) {
	b.Register(ListenerFunc(f))
}

// Cancelled はキャンセル済みかどうかを返す
func (b *Bus) Cancelled() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.cancelled
}

// Done はキャンセル時に close されるチャネルを返す
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

// Cancel はキャンセルを発行し、登録順にすべてのリスナーを呼び出す
// 二回目以降の呼び出しは何もしない
func (b *Bus) Cancel() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.cancelled {
		return
	}
	b.cancelled = true
	for _, l := range b.listeners {
		l.Notify()
	}
	b.listeners = nil
}
