package config

import (
	"errors"
	"fmt"
)

// 設定の読み込みで返されるエラー
var (
	// ErrNoKeymap は keymap が一つも定義されていないことを表す
	ErrNoKeymap = errors.New("keymapが設定されていません")

	// ErrAxisRange は xMap / yMap の値が不正であることを表す
	ErrAxisRange = errors.New("軸のマッピング範囲が不正です")

	// ErrSentinelCombined は switchSchema / fallback / none が他のキーと組み合わされたことを表す
	ErrSentinelCombined = errors.New("特殊キーワードは他のキーと組み合わせられません")
)

// KeyError はキー名として解釈できないトークンを表す
type KeyError struct {
	Token string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("'%s'は有効なキー名ではありません", e.Token)
}

// FieldError はどの keymap のどの入力で失敗したかを付加する
type FieldError struct {
	Keymap int
	Input  Input
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("keymap[%d].%s: %v", e.Keymap, e.Input, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
