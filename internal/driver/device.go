package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/char5742/ringpad/internal/cancel"
)

// ErrNoPad はタブレットのパッドが見つからないことを表す
var ErrNoPad = errors.New("パッドデバイスが見つかりません")

// findPad は dir からパッドのイベントデバイスを探し、実体のパスを返す
// 名前に "event" と "pad" を含むエントリを対象とし、名前順で最初のものを使う
func findPad(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("デバイス一覧の取得に失敗しました[dir=%s]: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.Contains(name, "event") || !strings.Contains(strings.ToLower(name), "pad") {
			continue
		}
		fullPath := filepath.Join(dir, name)
		realPath, err := os.Readlink(fullPath)
		if err != nil {
			// シンボリックリンクでなければそのまま使う
			return fullPath, nil
		}
		if filepath.IsAbs(realPath) {
			return realPath, nil
		}
		return filepath.Join(dir, realPath), nil
	}
	return "", ErrNoPad
}

// waitForPad はパッドが接続されるまで待つ
// 待っている間にキャンセルされた場合は空のパスを返す
func waitForPad(bus *cancel.Bus, dir string, logger *zap.Logger) (string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("デバイス監視の作成に失敗しました: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return "", fmt.Errorf("ディレクトリの監視に失敗しました[dir=%s]: %w", dir, err)
	}

	// 監視を始める前に接続された場合
	if path, err := findPad(dir); !errors.Is(err, ErrNoPad) {
		return path, err
	}

	logger.Info("パッドデバイスの接続を待っています", zap.String("dir", dir))
	for {
		select {
		case <-bus.Done():
			return "", nil
		case event, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("デバイス監視が終了しました[dir=%s]", dir)
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			path, err := findPad(dir)
			if errors.Is(err, ErrNoPad) {
				continue
			}
			return path, err
		case err, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("デバイス監視が終了しました[dir=%s]", dir)
			}
			return "", fmt.Errorf("デバイス監視でエラーが発生しました: %w", err)
		}
	}
}
