package driver

import (
	"golang.org/x/sys/unix"
)

// uinput と evdev の制御用定数（uinput.h, input.hから）
const (
	maxNameSize = 80         // デバイス名の最大サイズ
	absSize     = 64         // 絶対座標の配列サイズ
	devCreate   = 0x5501     // デバイス作成用のIOCTL
	devDestroy  = 0x5502     // デバイス破棄用のIOCTL
	setEvBit    = 0x40045564 // イベントビット設定用のIOCTL
	setKeyBit   = 0x40045565 // キービット設定用のIOCTL
	evIOCGrab   = 0x40044590 // デバイスの排他制御用のIOCTL
	busUsb      = 0x03       // USBバスタイプ
)

// inputID はデバイス識別子を表す構造体
type inputID struct {
	Bustype uint16 // バスタイプ
	Vendor  uint16 // ベンダーID
	Product uint16 // 製品ID
	Version uint16 // バージョン
}

// userDev はuinputユーザーデバイスの設定を表す構造体
type userDev struct {
	Name       [maxNameSize]byte // デバイス名
	ID         inputID           // デバイス識別子
	EffectsMax uint32            // 最大エフェクト数
	Absmax     [absSize]int32    // 絶対座標の最大値
	Absmin     [absSize]int32    // 絶対座標の最小値
	Absfuzz    [absSize]int32    // 絶対座標のファジー値
	Absflat    [absSize]int32    // 絶対座標のフラット値
}

func ioctl(fd uintptr, request uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name string) [maxNameSize]byte {
	var fixedSizeName [maxNameSize]byte
	copy(fixedSizeName[:maxNameSize-1], name)
	return fixedSizeName
}
