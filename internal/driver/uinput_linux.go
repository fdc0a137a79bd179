package driver

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/eapache/queue"
	"github.com/holoplot/go-evdev"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// virtualKeyboard はuinputで作成した仮想キーボード
// 書き込めなかったイベントは pending に残り、次の出力の前に送られる
type virtualKeyboard struct {
	file    *os.File
	pending *queue.Queue
	buf     []byte
}

// createKeyboard は keys を送出できる仮想キーボードを作成する
func createKeyboard(path string, name string, keys []evdev.EvCode) (*virtualKeyboard, error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, fmt.Errorf("デバイスファイルを開くのに失敗しました[path=%s]: %w", path, err)
	}
	fd := deviceFile.Fd()

	// キー入力イベント(EV_KEY)を登録する
	if err := ioctl(fd, setEvBit, uintptr(evdev.EV_KEY)); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("キー入力イベント(EV_KEY)の登録に失敗しました: %w", err)
	}
	for _, key := range keys {
		if err := ioctl(fd, setKeyBit, uintptr(key)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("キーの登録に失敗しました %v: %w", key, err)
		}
	}

	dev := userDev{
		Name: toUinputName(name),
		ID: inputID{
			Bustype: busUsb,
			Vendor:  0x4711,
			Product: 0x0818,
			Version: 1,
		},
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.NativeEndian, dev); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %w", err)
	}
	if _, err := deviceFile.Write(buf.Bytes()); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %w", err)
	}
	if err := ioctl(fd, devCreate, 0); err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイスの作成に失敗しました: %w", err)
	}

	return newVirtualKeyboard(deviceFile), nil
}

func newVirtualKeyboard(file *os.File) *virtualKeyboard {
	return &virtualKeyboard{
		file:    file,
		pending: queue.New(),
		buf:     make([]byte, 0, inputEventSize),
	}
}

// Press は keys を順に押し、同期イベントを送る
func (vk *virtualKeyboard) Press(keys []evdev.EvCode) error {
	for _, key := range keys {
		vk.enqueue(evdev.EV_KEY, key, 1)
	}
	vk.enqueue(evdev.EV_SYN, evdev.SYN_REPORT, 0)
	return vk.flush()
}

// Release は keys を押したときと逆の順に離し、同期イベントを送る
func (vk *virtualKeyboard) Release(keys []evdev.EvCode) error {
	for i := len(keys) - 1; i >= 0; i-- {
		vk.enqueue(evdev.EV_KEY, keys[i], 0)
	}
	vk.enqueue(evdev.EV_SYN, evdev.SYN_REPORT, 0)
	return vk.flush()
}

func (vk *virtualKeyboard) enqueue(typ evdev.EvType, code evdev.EvCode, value int32) {
	vk.pending.Add(evdev.InputEvent{Type: typ, Code: code, Value: value})
}

func (vk *virtualKeyboard) flush() error {
	for vk.pending.Length() > 0 {
		ev := vk.pending.Peek().(evdev.InputEvent)
		vk.buf = appendEvent(vk.buf[:0], ev)
		if _, err := vk.file.Write(vk.buf); err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return nil
			}
			return fmt.Errorf("イベントの書き込みに失敗しました: %w", err)
		}
		vk.pending.Remove()
	}
	return nil
}

// Close は仮想キーボードを破棄する
func (vk *virtualKeyboard) Close() error {
	return multierr.Combine(
		ioctl(vk.file.Fd(), devDestroy, 0),
		vk.file.Close(),
	)
}
