package config

import (
	"slices"

	"github.com/holoplot/go-evdev"
)

var keyCodes = map[string]evdev.EvCode{
	// 英字
	"a": evdev.KEY_A, "b": evdev.KEY_B, "c": evdev.KEY_C, "d": evdev.KEY_D,
	"e": evdev.KEY_E, "f": evdev.KEY_F, "g": evdev.KEY_G, "h": evdev.KEY_H,
	"i": evdev.KEY_I, "j": evdev.KEY_J, "k": evdev.KEY_K, "l": evdev.KEY_L,
	"m": evdev.KEY_M, "n": evdev.KEY_N, "o": evdev.KEY_O, "p": evdev.KEY_P,
	"q": evdev.KEY_Q, "r": evdev.KEY_R, "s": evdev.KEY_S, "t": evdev.KEY_T,
	"u": evdev.KEY_U, "v": evdev.KEY_V, "w": evdev.KEY_W, "x": evdev.KEY_X,
	"y": evdev.KEY_Y, "z": evdev.KEY_Z,
	// 数字
	"0": evdev.KEY_0, "1": evdev.KEY_1, "2": evdev.KEY_2, "3": evdev.KEY_3,
	"4": evdev.KEY_4, "5": evdev.KEY_5, "6": evdev.KEY_6, "7": evdev.KEY_7,
	"8": evdev.KEY_8, "9": evdev.KEY_9,
	// 記号
	"-": evdev.KEY_MINUS, "=": evdev.KEY_EQUAL, "\\": evdev.KEY_BACKSLASH,
	"`": evdev.KEY_GRAVE, "[": evdev.KEY_LEFTBRACE, "]": evdev.KEY_RIGHTBRACE,
	";": evdev.KEY_SEMICOLON, "'": evdev.KEY_APOSTROPHE, ",": evdev.KEY_COMMA,
	".": evdev.KEY_DOT, "/": evdev.KEY_SLASH,
	// 特殊キー
	"esc": evdev.KEY_ESC, "tab": evdev.KEY_TAB, "backspace": evdev.KEY_BACKSPACE,
	"enter": evdev.KEY_ENTER, "space": evdev.KEY_SPACE, "home": evdev.KEY_HOME,
	"end": evdev.KEY_END, "pageup": evdev.KEY_PAGEUP, "pagedown": evdev.KEY_PAGEDOWN,
	"insert": evdev.KEY_INSERT, "delete": evdev.KEY_DELETE,
	// 修飾キー
	"ctrl": evdev.KEY_LEFTCTRL, "shift": evdev.KEY_LEFTSHIFT,
	"alt": evdev.KEY_LEFTALT, "meta": evdev.KEY_LEFTMETA,
}

var keyNames = func() map[evdev.EvCode]string {
	names := make(map[evdev.EvCode]string, len(keyCodes))
	for name, code := range keyCodes {
		names[code] = name
	}
	return names
}()

// LookupKey はキー名に対応するキーコードを返す
func LookupKey(name string) (evdev.EvCode, bool) {
	code, ok := keyCodes[name]
	return code, ok
}

// KeyName はキーコードに対応する設定ファイル上の名前を返す
func KeyName(code evdev.EvCode) string {
	return keyNames[code]
}

// KeyCodes は設定で使えるすべてのキーコードを昇順で返す
// 仮想キーボードが対応キーを登録するのに使う
func KeyCodes() []evdev.EvCode {
	codes := make([]evdev.EvCode, 0, len(keyCodes))
	for _, code := range keyCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}
