package scheduler

import (
	"fmt"

	"autoblog/logger"
)

// cronLogger 는 robfig/cron 의 key-value 로그를 logger.Fields 로 옮긴다.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	logger.DebugWithFields("cron: "+msg, toFields(kv))
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	f := toFields(kv)
	f["error"] = err.Error()
	logger.ErrorWithFields("cron: "+msg, f)
}

func toFields(kv []any) logger.Fields {
	f := logger.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
