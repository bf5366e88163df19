package logger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"coverage-grid/internal/metrics"
)

// statusWriter：记录响应状态码与写出字节数
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// accessLevel：5xx 为 Warn；修改类请求（非 GET/HEAD）会改写商户配置，以 Info 留痕；
// 页面、瓦片配置与状态轮询等只读请求为 Debug
func accessLevel(method string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelWarn
	case method != http.MethodGet && method != http.MethodHead:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// AccessMiddleware：访问日志 + 请求计数/耗时
// 约束：不读取请求体，坐标与代码只出现在控制器自己的日志里
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, statusClass(sw.status)).Inc()
			metrics.HTTPRequestDurationMs.Observe(float64(elapsed.Milliseconds()))
			l.Log(r.Context(), accessLevel(r.Method, sw.status), "http_access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", elapsed.Milliseconds(),
				"ip", r.RemoteAddr,
			)
		})
	}
}
