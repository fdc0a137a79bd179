package config

import (
	"slices"
	"testing"

	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  rawAction
	}{
		{"single key", "a", rawAction{action: KeyChord(evdev.KEY_A)}},
		{"chord", "ctrl+shift+z", rawAction{action: KeyChord(evdev.KEY_LEFTCTRL, evdev.KEY_LEFTSHIFT, evdev.KEY_Z)}},
		{"duplicates removed in first-seen order", "ctrl+a+ctrl", rawAction{action: KeyChord(evdev.KEY_LEFTCTRL, evdev.KEY_A)}},
		{"spaces around tokens", " alt + tab ", rawAction{action: KeyChord(evdev.KEY_LEFTALT, evdev.KEY_TAB)}},
		{"symbols", "shift+/", rawAction{action: KeyChord(evdev.KEY_LEFTSHIFT, evdev.KEY_SLASH)}},
		{"switchSchema", "switchSchema", rawAction{action: CycleProfile()}},
		{"fallback", "fallback", rawAction{inherit: true}},
		{"none", "none", rawAction{action: Inert()}},
		{"repeated keyword", "none+none", rawAction{action: Inert()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAction(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want.inherit, got.inherit)
			assert.True(t, tt.want.action.Equal(got.action), "want %s, got %s", tt.want.action, got.action)
		})
	}
}

func TestParseAction_SentinelExclusive(t *testing.T) {
	for _, value := range []string{"switchSchema+a", "fallback+a", "none+a", "a+none"} {
		_, err := parseAction(value)
		assert.ErrorIs(t, err, ErrSentinelCombined, value)
	}
}

func TestParseAction_UnknownKey(t *testing.T) {
	_, err := parseAction("ctrl+f13")
	var keyErr *KeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "f13", keyErr.Token)

	_, err = parseAction("ctrl+")
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "", keyErr.Token)
}

func TestResolveKeymaps_InheritChain(t *testing.T) {
	a := rawAction{action: KeyChord(evdev.KEY_A)}
	inherit := rawAction{inherit: true}

	var p0, p1, p2 [NumInputs]rawAction
	for i := range p0 {
		p0[i], p1[i], p2[i] = inherit, inherit, inherit
	}
	p0[Button0] = a
	p1[Button1] = rawAction{action: CycleProfile()}

	keymaps := resolveKeymaps([][NumInputs]rawAction{p0, p1, p2})
	require.Len(t, keymaps, 3)

	for i, km := range keymaps {
		assert.True(t, km.Action(Button0).Equal(KeyChord(evdev.KEY_A)), "keymap %d", i)
	}
	assert.Equal(t, ActionInert, keymaps[0].Action(Button1).Kind())
	assert.Equal(t, ActionCycleProfile, keymaps[1].Action(Button1).Kind())
	assert.Equal(t, ActionCycleProfile, keymaps[2].Action(Button1).Kind())
	assert.Equal(t, ActionInert, keymaps[2].Action(RingButton).Kind())
}

func TestResolveKeymaps_ExplicitNoneStopsInheritance(t *testing.T) {
	var p0, p1, p2 [NumInputs]rawAction
	p0[Ring0] = rawAction{action: KeyChord(evdev.KEY_PAGEUP)}
	p1[Ring0] = rawAction{action: Inert()}
	p2[Ring0] = rawAction{inherit: true}

	keymaps := resolveKeymaps([][NumInputs]rawAction{p0, p1, p2})

	assert.Equal(t, ActionKeyChord, keymaps[0].Action(Ring0).Kind())
	assert.Equal(t, ActionInert, keymaps[2].Action(Ring0).Kind())
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "ctrl+a", KeyChord(evdev.KEY_LEFTCTRL, evdev.KEY_A).String())
	assert.Equal(t, "switchSchema", CycleProfile().String())
	assert.Equal(t, "none", Inert().String())
	assert.Equal(t, "ringButton", RingButton.String())
}

func TestAction_KeysReturnsCopy(t *testing.T) {
	a := KeyChord(evdev.KEY_A, evdev.KEY_B)
	keys := a.Keys()
	keys[0] = evdev.KEY_Z

	assert.Equal(t, []evdev.EvCode{evdev.KEY_A, evdev.KEY_B}, a.Keys())
}

func TestKeyCodes_CoversVocabulary(t *testing.T) {
	codes := KeyCodes()
	assert.Len(t, codes, len(keyCodes))
	assert.True(t, slices.IsSorted(codes))
	code, ok := LookupKey("meta")
	require.True(t, ok)
	assert.Equal(t, "meta", KeyName(code))
}
