package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/holoplot/go-evdev"
)

// Input はパッド上の論理入力
type Input int

const (
	Button0 Input = iota
	Button1
	Button2
	Button3
	Button4
	Button5
	Button6
	Button7
	Ring0      // リングの回転(方向A)
	Ring1      // リングの回転(方向B)
	RingButton // リング中央のボタン

	NumInputs int = iota
)

var inputNames = [NumInputs]string{
	"button0", "button1", "button2", "button3",
	"button4", "button5", "button6", "button7",
	"ring0", "ring1", "ringButton",
}

func (in Input) String() string {
	if in < 0 || int(in) >= NumInputs {
		return "unknown"
	}
	return inputNames[in]
}

// 設定値として使える特殊キーワード
const (
	keywordSwitchSchema = "switchSchema"
	keywordFallback     = "fallback"
	keywordNone         = "none"
)

// ActionKind は解決済みアクションの種類
type ActionKind uint8

const (
	ActionInert        ActionKind = iota // 何も出力しない
	ActionKeyChord                       // キーを同時に押す
	ActionCycleProfile                   // 次の keymap に切り替える
)

// Action は解決済みの入力割り当て
// 直前の keymap を参照する状態はこの型では表現できない
type Action struct {
	kind ActionKind
	keys []evdev.EvCode
}

// Inert は何もしないアクションを返す
func Inert() Action { return Action{} }

// CycleProfile は keymap を切り替えるアクションを返す
func CycleProfile() Action { return Action{kind: ActionCycleProfile} }

// KeyChord は指定したキーを同時に押すアクションを返す
// 重複したキーは最初の出現位置だけを残す
func KeyChord(keys ...evdev.EvCode) Action {
	chord := make([]evdev.EvCode, 0, len(keys))
	for _, k := range keys {
		if !slices.Contains(chord, k) {
			chord = append(chord, k)
		}
	}
	return Action{kind: ActionKeyChord, keys: chord}
}

func (a Action) Kind() ActionKind { return a.kind }

// Keys は押下するキーのコピーを返す
func (a Action) Keys() []evdev.EvCode {
	return slices.Clone(a.keys)
}

func (a Action) Equal(b Action) bool {
	return a.kind == b.kind && slices.Equal(a.keys, b.keys)
}

func (a Action) String() string {
	switch a.kind {
	case ActionCycleProfile:
		return keywordSwitchSchema
	case ActionKeyChord:
		names := make([]string, len(a.keys))
		for i, k := range a.keys {
			names[i] = KeyName(k)
		}
		return strings.Join(names, "+")
	default:
		return keywordNone
	}
}

// Keymap は一つのプロファイルに含まれる全入力の割り当て
type Keymap struct {
	actions [NumInputs]Action
}

// Action は入力に割り当てられたアクションを返す
func (k Keymap) Action(in Input) Action {
	if in < 0 || int(in) >= NumInputs {
		return Inert()
	}
	return k.actions[in]
}

// rawAction は解決前の中間表現で、直前の keymap を参照する inherit を含む
type rawAction struct {
	inherit bool
	action  Action
}

// parseAction は "ctrl+shift+a" のような設定値を中間表現に変換する
func parseAction(value string) (rawAction, error) {
	var parts []string
	for _, part := range strings.Split(value, "+") {
		part = strings.TrimSpace(part)
		if !slices.Contains(parts, part) {
			parts = append(parts, part)
		}
	}

	for _, keyword := range []string{keywordSwitchSchema, keywordFallback, keywordNone} {
		if !slices.Contains(parts, keyword) {
			continue
		}
		if len(parts) > 1 {
			return rawAction{}, fmt.Errorf("'%s': %w", keyword, ErrSentinelCombined)
		}
		switch keyword {
		case keywordSwitchSchema:
			return rawAction{action: CycleProfile()}, nil
		case keywordFallback:
			return rawAction{inherit: true}, nil
		default:
			return rawAction{action: Inert()}, nil
		}
	}

	codes := make([]evdev.EvCode, 0, len(parts))
	for _, part := range parts {
		code, ok := LookupKey(part)
		if !ok {
			return rawAction{}, &KeyError{Token: part}
		}
		codes = append(codes, code)
	}
	return rawAction{action: KeyChord(codes...)}, nil
}

// resolve は直前の keymap で解決済みの値を使って inherit を埋める
// prev が nil (先頭の keymap) の場合 inherit は Inert になる
func (r rawAction) resolve(prev *Keymap, in Input) Action {
	if !r.inherit {
		return r.action
	}
	if prev == nil {
		return Inert()
	}
	return prev.actions[in]
}

// resolveKeymaps は keymap を先頭から順に解決する
// fallback は直前の keymap の解決済みの値を引き継ぐため、連鎖していても先頭の具体的な値まで伝播する
func resolveKeymaps(raws [][NumInputs]rawAction) []Keymap {
	keymaps := make([]Keymap, len(raws))
	for i, raw := range raws {
		var prev *Keymap
		if i > 0 {
			prev = &keymaps[i-1]
		}
		for in, r := range raw {
			keymaps[i].actions[in] = r.resolve(prev, Input(in))
		}
	}
	return keymaps
}
