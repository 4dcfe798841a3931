package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"notely/pkg/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "notely"

var (
	Logger *logrus.Logger
	rotate *lumberjack.Logger
)

// serviceHook 为每条日志附上服务名
type serviceHook struct{}

func (serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = serviceName
	}
	return nil
}

// Initialize 初始化日志：等级、格式、按大小轮转的文件输出
func Initialize(cfg *config.Config) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyTime: "timestamp",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.AddHook(serviceHook{})

	var out io.Writer = os.Stdout
	var rotator *lumberjack.Logger
	if cfg.Log.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.FilePath), 0755); err != nil {
			return err
		}
		rotator = &lumberjack.Logger{
			Filename:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}
		// 同时输出到文件和控制台
		out = io.MultiWriter(os.Stdout, rotator)
	}
	l.SetOutput(out)

	Logger, rotate = l, rotator
	if err != nil {
		Logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.Log.Level)
	}
	return nil
}

// Rotate 立即切换日志文件，未配置文件输出时不做任何事
func Rotate() error {
	if rotate == nil {
		return nil
	}
	return rotate.Rotate()
}

// GetLogger 获取日志实例，未初始化时返回标准输出的默认实例
func GetLogger() *logrus.Logger {
	if Logger == nil {
		Logger = logrus.New()
	}
	return Logger
}
