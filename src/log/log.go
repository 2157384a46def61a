package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bililive-go/toffeelive-go/src/configs"
	"github.com/bililive-go/toffeelive-go/src/consts"
)

// New 按配置初始化全局 logrus logger。
// 返回的 closer 用于在退出时关闭日志文件。
func New(cfg *configs.Config) (*logrus.Logger, io.Closer, error) {
	logLevel := logrus.InfoLevel
	if cfg.Debug {
		logLevel = logrus.DebugLevel
	}
	writers := []io.Writer{os.Stderr}
	closers := multiCloser{}

	outputFolder := cfg.Log.OutPutFolder
	if cfg.Log.SaveEveryLog || cfg.Log.SaveLastLog {
		if _, err := os.Stat(outputFolder); err != nil {
			return nil, nil, fmt.Errorf("failed to determine log output folder %s: %w", outputFolder, err)
		}
	}
	if cfg.Log.SaveEveryLog {
		runID := time.Now().Format("run-2006-01-02-15-04-05")
		logLocation := filepath.Join(outputFolder, runID+".log")
		logFile, err := os.OpenFile(logLocation, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s for output: %w", logLocation, err)
		}
		writers = append(writers, logFile)
		closers = append(closers, logFile)
	}
	if cfg.Log.SaveLastLog {
		// 按天滚动写入日志
		rot := newDailyRotatingWriter(outputFolder, consts.AppName, cfg.Log.RotateDays)
		writers = append(writers, rot)
		closers = append(closers, rot)
	}

	logrus.SetOutput(io.MultiWriter(writers...))
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logrus.SetReportCaller(cfg.Debug)
	logrus.SetLevel(logLevel)

	return logrus.StandardLogger(), closers, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var firstErr error
	for _, c := range m {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dailyRotatingWriter 按“天”切分日志文件，文件名形如：<base>-YYYY-MM-DD.log
// 可选保留最近 N 天（retentionDays<=0 时不清理）。
type dailyRotatingWriter struct {
	dir           string
	base          string
	retentionDays int

	mu     sync.Mutex
	curDay string
	file   *os.File
	now    func() time.Time
}

func newDailyRotatingWriter(dir, base string, retentionDays int) *dailyRotatingWriter {
	w := &dailyRotatingWriter{dir: dir, base: base, retentionDays: retentionDays, now: time.Now}
	_ = w.rotateIfNeededLocked(w.now())
	return w
}

func (w *dailyRotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateIfNeededLocked(w.now()); err != nil {
		return 0, err
	}
	if w.file == nil {
		return 0, io.ErrClosedPipe
	}
	return w.file.Write(p)
}

func (w *dailyRotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.curDay = ""
	return err
}

func (w *dailyRotatingWriter) rotateIfNeededLocked(now time.Time) error {
	day := now.Format("2006-01-02")
	if w.file != nil && day == w.curDay {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	name := w.filenameForDay(day)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.curDay = day
	w.cleanupLocked(now)
	return nil
}

func (w *dailyRotatingWriter) filenameForDay(day string) string {
	return filepath.Join(w.dir, w.base+"-"+day+".log")
}

func (w *dailyRotatingWriter) cleanupLocked(now time.Time) {
	if w.retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -w.retentionDays)
	pattern := filepath.Join(w.dir, w.base+"-*.log")
	files, _ := filepath.Glob(pattern)
	for _, f := range files {
		// 期望格式：<base>-YYYY-MM-DD.log
		base := filepath.Base(f)
		if !strings.HasPrefix(base, w.base+"-") || !strings.HasSuffix(base, ".log") {
			continue
		}
		dateStr := strings.TrimSuffix(strings.TrimPrefix(base, w.base+"-"), ".log")
		if t, err := time.Parse("2006-01-02", dateStr); err == nil {
			if t.Before(cutoff) {
				_ = os.Remove(f)
			}
		}
	}
}
