package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config はアプリケーション全体の設定を表す構造体
// 一度作成したら変更しない。再読み込み時は新しい Config を作成する
type Config struct {
	XMaxValue uint16     // X軸の最大値
	YMaxValue uint16     // Y軸の最大値
	XMap      *AxisRange // X軸の比例マッピング (未設定なら nil)
	YMap      *AxisRange // Y軸の比例マッピング (未設定なら nil)
	Keymaps   []Keymap   // キー割り当てのプロファイル (定義順)
	Ignored   []string   // 解釈しなかった設定項目 (読み込みは失敗させない)
}

// AxisRange は軸の有効範囲を 0〜1 の比率で表す
type AxisRange struct {
	Min float32
	Max float32
}

// rawConfig は設定ファイルの内容をそのまま受け取る構造体
type rawConfig struct {
	XMaxValue uint16      `toml:"xMaxValue"`
	YMaxValue uint16      `toml:"yMaxValue"`
	XMap      []float32   `toml:"xMap"`
	YMap      []float32   `toml:"yMap"`
	Keymaps   []rawKeymap `toml:"keymap"`
}

// rawKeymap は一つのプロファイルの設定値
// 省略された項目は "fallback" として扱う
type rawKeymap struct {
	Button0    *string `toml:"button0"`
	Button1    *string `toml:"button1"`
	Button2    *string `toml:"button2"`
	Button3    *string `toml:"button3"`
	Button4    *string `toml:"button4"`
	Button5    *string `toml:"button5"`
	Button6    *string `toml:"button6"`
	Button7    *string `toml:"button7"`
	Ring0      *string `toml:"ring0"`
	Ring1      *string `toml:"ring1"`
	RingButton *string `toml:"ringButton"`
}

func (r rawKeymap) values() [NumInputs]string {
	fields := [NumInputs]*string{
		r.Button0, r.Button1, r.Button2, r.Button3,
		r.Button4, r.Button5, r.Button6, r.Button7,
		r.Ring0, r.Ring1, r.RingButton,
	}
	var values [NumInputs]string
	for i, f := range fields {
		if f == nil {
			values[i] = keywordFallback
		} else {
			values[i] = *f
		}
	}
	return values
}

// Default はデフォルト設定を返す
// 設定ファイルを指定せずに起動したときに使う
func Default() *Config {
	return &Config{}
}

// Load は設定ファイルから設定を読み込む
func Load(configPath string) (*Config, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました[path=%s]: %w", configPath, err)
	}
	return Parse(string(content))
}

// Parse はTOML形式の設定を解析し、keymap を解決した Config を返す
func Parse(content string) (*Config, error) {
	var raw rawConfig
	md, err := toml.Decode(content, &raw)
	if err != nil {
		return nil, fmt.Errorf("TOMLの解析に失敗しました: %w", err)
	}
	undecoded := md.Undecoded()
	ignored := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		ignored = append(ignored, k.String())
	}

	if len(raw.Keymaps) == 0 {
		return nil, ErrNoKeymap
	}

	raws := make([][NumInputs]rawAction, len(raw.Keymaps))
	for i, km := range raw.Keymaps {
		for in, value := range km.values() {
			action, err := parseAction(value)
			if err != nil {
				return nil, &FieldError{Keymap: i, Input: Input(in), Err: err}
			}
			raws[i][in] = action
		}
	}

	xMap, err := parseAxisRange("xMap", raw.XMap)
	if err != nil {
		return nil, err
	}
	yMap, err := parseAxisRange("yMap", raw.YMap)
	if err != nil {
		return nil, err
	}

	return &Config{
		XMaxValue: raw.XMaxValue,
		YMaxValue: raw.YMaxValue,
		XMap:      xMap,
		YMap:      yMap,
		Keymaps:   resolveKeymaps(raws),
		Ignored:   ignored,
	}, nil
}

// parseAxisRange は [min, max] を検証する。範囲外の値は丸めずにエラーにする
func parseAxisRange(field string, values []float32) (*AxisRange, error) {
	if values == nil {
		return nil, nil
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("%sは[最小値, 最大値]の2要素で指定してください: %w", field, ErrAxisRange)
	}
	lo, hi := values[0], values[1]
	if !(lo >= 0 && lo <= 1) {
		return nil, fmt.Errorf("%sの最小値(%v)は0から1の間でなければなりません: %w", field, lo, ErrAxisRange)
	}
	if !(hi >= 0 && hi <= 1) {
		return nil, fmt.Errorf("%sの最大値(%v)は0から1の間でなければなりません: %w", field, hi, ErrAxisRange)
	}
	if lo >= hi {
		return nil, fmt.Errorf("%sの最小値(%v)は最大値(%v)より小さくなければなりません: %w", field, lo, hi, ErrAxisRange)
	}
	return &AxisRange{Min: lo, Max: hi}, nil
}

// Keymap は i 番目のプロファイルを返す。i はプロファイル数で折り返す
// プロファイルが一つもない場合はすべて Inert の割り当てを返す
func (c *Config) Keymap(i int) Keymap {
	n := len(c.Keymaps)
	if n == 0 {
		return Keymap{}
	}
	i %= n
	if i < 0 {
		i += n
	}
	return c.Keymaps[i]
}
