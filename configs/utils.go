package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is the process logger. Components derive entries from it with WithField.
var Logger = logrus.New()

// SetupLogger applies the log configuration to Logger.
func SetupLogger(cfg LogConfig) error {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.00",
	})
	if !cfg.ToFile {
		Logger.SetOutput(os.Stderr)
		return nil
	}
	if err := os.MkdirAll(cfg.Path, os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to create log directory")
	}
	name := fmt.Sprintf("logfiles_%s.log", time.Now().Format("2006-01-02T15-04-05"))
	f, err := os.OpenFile(filepath.Join(cfg.Path, name), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return errors.Wrap(err, "error opening log file")
	}
	Logger.SetOutput(f)
	return nil
}

func DPrintf(format string, a ...interface{}) {
	Logger.Debugf(format, a...)
}

// TPrintf logs at trace level, used for per-node protocol steps.
func TPrintf(format string, a ...interface{}) {
	Logger.Tracef(format, a...)
}

func Warn(cond bool, msg string) bool {
	if !cond {
		Logger.Warn(msg)
	}
	return cond
}

func JToString(v interface{}) string {
	byt, _ := json.Marshal(v)
	return string(byt)
}

func TimeTrack(start time.Time, name string, id uint64) {
	TPrintf("BROADCAST%d: Time cost for %s : %s", id, name, time.Since(start).String())
}

// TimeAdd adds the time elapsed since start to latency.
func TimeAdd(start time.Time, name string, id uint64, latency *time.Duration) {
	if latency == nil {
		return
	}
	*latency = time.Since(start) + *latency
	TimeTrack(start, name, id)
}
