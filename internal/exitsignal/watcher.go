// Package exitsignal は終了シグナルを受け取ってキャンセルを発行する
package exitsignal

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"

	"github.com/char5742/ringpad/internal/cancel"
)

// ErrAlreadyWaited は Wait が二回呼ばれたことを表す
var ErrAlreadyWaited = errors.New("exitsignal: Wait はすでに呼び出されています")

var exitSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// Watcher は SIGINT / SIGTERM / SIGHUP とキャンセルのどちらかを待つ
// Go ではプロセス全体のシグナルマスクを制御できないため、signalfd ではなく
// signal.Notify のチャネルとキャンセルのチャネルを select で待ち合わせる
type Watcher struct {
	bus     *cancel.Bus
	signals chan os.Signal
	waited  atomic.Bool
	logger  *zap.Logger
}

// New はシグナルの受信を開始した Watcher を作成する
// この時点からデフォルトのシグナルハンドラによってプロセスが終了することはない
func New(bus *cancel.Bus, logger *zap.Logger) *Watcher {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, exitSignals...)
	return &Watcher{
		bus:     bus,
		signals: signals,
		logger:  logger,
	}
}

// Wait はシグナルを受信するかキャンセルされるまでブロックする
// シグナルを受信した場合は Bus をキャンセルしてから戻る
// 以降の終了シグナルは無視し、後片付けの途中でプロセスが終了しないようにする
func (w *Watcher) Wait() error {
	if w.waited.Swap(true) {
		return ErrAlreadyWaited
	}

	select {
	case <-w.bus.Done():
		signal.Stop(w.signals)
		return nil
	case sig := <-w.signals:
		signal.Ignore(exitSignals...)
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP:
			w.logger.Info("終了シグナルを受信しました。終了します", zap.String("signal", signalName(sig)))
		default:
			panic(fmt.Sprintf("exitsignal: 監視していないシグナル %v を受信しました", sig))
		}
		w.bus.Cancel()
		return nil
	}
}

func signalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGHUP:
		return "SIGHUP"
	default:
		return sig.String()
	}
}
