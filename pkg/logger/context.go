package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextKey string

const entryKey contextKey = "logger"

// FromContext 取出请求级日志，不存在时退回全局日志
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(entryKey).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(GetLogger())
}

// WithContext 把日志条目挂到 context 上
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, entryKey, entry)
}
