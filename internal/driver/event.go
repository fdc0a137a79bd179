package driver

import (
	"encoding/binary"
	"syscall"
	"unsafe"

	"github.com/holoplot/go-evdev"

	"github.com/char5742/ringpad/internal/config"
)

// struct input_event は時刻 (long 2つ) の後に type, code, value が続く
// long の大きさとバイト順は実行環境に従う
const (
	timevalSize    = int(unsafe.Sizeof(syscall.Timeval{}))
	wordSize       = timevalSize / 2
	inputEventSize = timevalSize + 8
)

func readWord(b []byte) int64 {
	if wordSize == 8 {
		return int64(binary.NativeEndian.Uint64(b))
	}
	return int64(int32(binary.NativeEndian.Uint32(b)))
}

func decodeEvent(buf []byte) evdev.InputEvent {
	sec := readWord(buf[0:wordSize])
	usec := readWord(buf[wordSize:timevalSize])
	rest := buf[timevalSize:inputEventSize]
	return evdev.InputEvent{
		Time:  syscall.NsecToTimeval(sec*1e9 + usec*1e3),
		Type:  evdev.EvType(binary.NativeEndian.Uint16(rest[0:2])),
		Code:  evdev.EvCode(binary.NativeEndian.Uint16(rest[2:4])),
		Value: int32(binary.NativeEndian.Uint32(rest[4:8])),
	}
}

// appendEvent は ev を input_event の形式で dst に追加する
// 時刻はカーネルが設定するため常に0を書き込む
func appendEvent(dst []byte, ev evdev.InputEvent) []byte {
	var buf [inputEventSize]byte
	rest := buf[timevalSize:]
	binary.NativeEndian.PutUint16(rest[0:2], uint16(ev.Type))
	binary.NativeEndian.PutUint16(rest[2:4], uint16(ev.Code))
	binary.NativeEndian.PutUint32(rest[4:8], uint32(ev.Value))
	return append(dst, buf[:]...)
}

type padEventKind int

const (
	padPress   padEventKind = iota // ボタンが押された
	padRelease                     // ボタンが離された
	padPulse                       // リングが回された。押して離すのと同じ扱い
)

// padEvent はタブレットの入力を config.Input の単位にまとめたもの
type padEvent struct {
	input config.Input
	kind  padEventKind
}

// translator はタブレットの生イベントを padEvent に変換する
// ABS_WHEEL は絶対位置で届くため、直前の位置との差で回転方向を判定する
type translator struct {
	wheel     int32
	haveWheel bool
}

func (t *translator) translate(ev evdev.InputEvent) (padEvent, bool) {
	switch ev.Type {
	case evdev.EV_KEY:
		in, ok := buttonInput(ev.Code)
		if !ok {
			return padEvent{}, false
		}
		switch ev.Value {
		case 1:
			return padEvent{input: in, kind: padPress}, true
		case 0:
			return padEvent{input: in, kind: padRelease}, true
		default:
			// オートリピート
			return padEvent{}, false
		}
	case evdev.EV_REL:
		if ev.Code != evdev.REL_WHEEL && ev.Code != evdev.REL_DIAL {
			return padEvent{}, false
		}
		return ringPulse(ev.Value)
	case evdev.EV_ABS:
		if ev.Code != evdev.ABS_WHEEL {
			return padEvent{}, false
		}
		prev, had := t.wheel, t.haveWheel
		t.wheel, t.haveWheel = ev.Value, true
		if !had {
			return padEvent{}, false
		}
		return ringPulse(ev.Value - prev)
	}
	return padEvent{}, false
}

func buttonInput(code evdev.EvCode) (config.Input, bool) {
	switch {
	case code >= evdev.BTN_0 && code <= evdev.BTN_7:
		return config.Button0 + config.Input(code-evdev.BTN_0), true
	case code == evdev.BTN_8:
		return config.RingButton, true
	}
	return 0, false
}

func ringPulse(delta int32) (padEvent, bool) {
	switch {
	case delta > 0:
		return padEvent{input: config.Ring0, kind: padPulse}, true
	case delta < 0:
		return padEvent{input: config.Ring1, kind: padPulse}, true
	}
	return padEvent{}, false
}
