package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/char5742/ringpad/internal/cancel"
	"github.com/char5742/ringpad/internal/config"
	"github.com/char5742/ringpad/internal/driver"
	"github.com/char5742/ringpad/internal/exitsignal"
)

var (
	verbose    bool
	devicePath string
	uinputPath string
	deviceDir  string

	logger *zap.Logger
)

// driverTask は main ゴルーチンで実行するパッドの変換タスク
type driverTask interface {
	Run() error
}

var newDriverTask = func(bus *cancel.Bus, cfg *config.Config, watcher *config.Watcher, options driver.Options) driverTask {
	return driver.New(bus, cfg, watcher, options, logger)
}

var rootCmd = &cobra.Command{
	Use:   "ringpad [config-path]",
	Short: "タブレットのボタンとリングをキー入力に割り当てるデーモン",
	Long: `タブレットのパッドのボタンとタッチリングの入力を読み取り、
設定ファイルの keymap に従って仮想キーボードのキー入力に変換します。

設定ファイルを指定した場合は変更を監視し、保存されると自動で再読み込みします。
SIGINT / SIGTERM / SIGHUP を受け取ると終了します。`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("ロガーの初期化に失敗しました: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := ""
		if len(args) > 0 {
			configPath = args[0]
		}
		return run(configPath)
	},
}

func init() {
	defaults := driver.DefaultOptions()
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力します")
	rootCmd.Flags().StringVar(&devicePath, "device", "", "パッドのイベントデバイスのパス (指定しない場合は自動で検出)")
	rootCmd.Flags().StringVar(&uinputPath, "uinput", defaults.UinputPath, "uinputデバイスのパス")
	rootCmd.Flags().StringVar(&deviceDir, "device-dir", defaults.DeviceDir, "パッドを検出するディレクトリ")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}

// run は各タスクを起動し、パッドの入力の変換が終わるまで待つ
func run(configPath string) error {
	bus := cancel.NewBus()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger.Info("設定ファイルを読み込みました", zap.String("path", configPath), zap.Int("keymaps", len(cfg.Keymaps)))
		if len(cfg.Ignored) > 0 {
			logger.Warn("設定ファイルに未知の項目があります", zap.Strings("keys", cfg.Ignored))
		}
	} else {
		logger.Info("設定ファイルが指定されていないため、すべての入力を無視します")
	}

	signals := exitsignal.New(bus, logger)

	var watcher *config.Watcher
	if configPath != "" {
		var err error
		watcher, err = config.NewWatcher(configPath, bus, logger)
		if err != nil {
			return err
		}
	}

	task := newDriverTask(bus, cfg, watcher, driver.Options{
		DevicePath: devicePath,
		UinputPath: uinputPath,
		DeviceDir:  deviceDir,
	})

	var (
		wg     sync.WaitGroup
		mutex  sync.Mutex
		result error
	)
	record := func(name string, err error) {
		if err == nil {
			return
		}
		logger.Error("タスクがエラーで終了しました", zap.String("task", name), zap.Error(err))
		mutex.Lock()
		result = multierr.Append(result, fmt.Errorf("%s: %w", name, err))
		mutex.Unlock()
	}
	spawn := func(name string, f func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					record(name, fmt.Errorf("panic: %v", r))
				}
			}()
			record(name, f())
		}()
	}

	spawn("signal", signals.Wait)
	if watcher != nil {
		spawn("config", watcher.Run)
	}

	record("driver", runRecovered(task.Run))
	bus.Cancel()
	wg.Wait()

	mutex.Lock()
	defer mutex.Unlock()
	return result
}

func runRecovered(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}
