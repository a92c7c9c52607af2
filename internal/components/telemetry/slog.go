package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// SlogAPI implements API on top of a *slog.Logger, the zero value logs to
// slog.Default().
type SlogAPI struct {
	Logger *slog.Logger
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// attrs splits a scoped id ("zwiftpower: profile.name") into its scope and
// report id, errors get their own "err" key.
func attrs(id string, params []any) []any {
	out := make([]any, 0, 4+len(params)*2)
	if scope, rest, ok := strings.Cut(id, ": "); ok {
		out = append(out, "scope", scope, "id", rest)
	} else if id != "" {
		out = append(out, "id", id)
	}

	errCount := 0
	for i, p := range params {
		if err, ok := p.(error); ok {
			key := "err"
			if errCount > 0 {
				key = fmt.Sprintf("err.%d", errCount)
			}
			errCount++
			out = append(out, key, err.Error())
			continue
		}
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.logger().Error("broken component", attrs(id, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.logger().Warn("warning", attrs(id, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.logger().Debug(message, attrs("", params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.logger().Info("count", append(attrs(id, nil), "n", count)...)
}

// InitSlog installs a text handler on stderr as the default logger, stdout is
// left alone since riderlist may write its output there.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
