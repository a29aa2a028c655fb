package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	log  *slog.Logger
	once sync.Once
)

// Init configures the process-wide structured logger. Safe to call more
// than once; only the first call takes effect.
func Init() {
	once.Do(func() {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
}

func attrs(fields map[string]interface{}) []any {
	out := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		out = append(out, key, value)
	}
	return out
}

func Info(event string, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Info(event, attrs(fields)...)
}

// InfoWithUser logs an event attributed to a specific user.
func InfoWithUser(userID, event string, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Info(event, append([]any{"user_id", userID}, attrs(fields)...)...)
}

func Warn(event string, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Warn(event, attrs(fields)...)
}

func Error(event string, err error, fields map[string]interface{}) {
	if log == nil {
		Init()
	}
	args := attrs(fields)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	log.Error(event, args...)
}
