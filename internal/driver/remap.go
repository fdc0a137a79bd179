// Package driver はタブレットのパッド入力を読み取り、設定に従って仮想キーボードのキー入力に変換する
package driver

import (
	"github.com/holoplot/go-evdev"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/char5742/ringpad/internal/config"
)

// Emitter はキーの押下と解放を出力する
type Emitter interface {
	Press(keys []evdev.EvCode) error
	Release(keys []evdev.EvCode) error
}

// Remapper は現在のプロファイルに従ってタブレットの入力をキー入力に置き換える
type Remapper struct {
	cfg     *config.Config
	profile int
	held    [config.NumInputs][]evdev.EvCode
	emitter Emitter
	logger  *zap.Logger
}

// NewRemapper は最初のプロファイルから始まる Remapper を作成する
func NewRemapper(cfg *config.Config, emitter Emitter, logger *zap.Logger) *Remapper {
	return &Remapper{cfg: cfg, emitter: emitter, logger: logger}
}

// Profile は現在のプロファイル番号を返す
func (r *Remapper) Profile() int {
	return r.profile
}

// SetConfig は設定を差し替える
// 押されているボタンは押したときのキーで離す
func (r *Remapper) SetConfig(cfg *config.Config) {
	r.cfg = cfg
	if n := len(cfg.Keymaps); r.profile >= n {
		r.profile = max(n-1, 0)
		r.logger.Info("プロファイル数が減ったため、プロファイルを変更しました", zap.Int("profile", r.profile))
	}
}

func (r *Remapper) handle(ev padEvent) error {
	if ev.kind == padRelease {
		keys := r.held[ev.input]
		if keys == nil {
			return nil
		}
		r.held[ev.input] = nil
		return r.emitter.Release(keys)
	}

	if keys := r.held[ev.input]; keys != nil {
		// 解放イベントを取りこぼした場合
		r.held[ev.input] = nil
		if err := r.emitter.Release(keys); err != nil {
			return err
		}
	}

	action := r.cfg.Keymap(r.profile).Action(ev.input)
	switch action.Kind() {
	case config.ActionKeyChord:
		keys := action.Keys()
		if err := r.emitter.Press(keys); err != nil {
			return err
		}
		if ev.kind == padPulse {
			return r.emitter.Release(keys)
		}
		r.held[ev.input] = keys
	case config.ActionCycleProfile:
		if n := len(r.cfg.Keymaps); n > 0 {
			r.profile = (r.profile + 1) % n
		}
		r.logger.Info("プロファイルを切り替えました", zap.Int("profile", r.profile), zap.Stringer("input", ev.input))
	case config.ActionInert:
	}
	return nil
}

// ReleaseAll は押したままのキーをすべて離す
func (r *Remapper) ReleaseAll() error {
	var err error
	for in, keys := range r.held {
		if keys == nil {
			continue
		}
		r.held[in] = nil
		err = multierr.Append(err, r.emitter.Release(keys))
	}
	return err
}
