package logger

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/washportal/internal/logger/config"
)

const HeaderRequestID = "X-Request-ID"

func NewZapLog(cfg config.Config) (*zap.Logger, error) {
	// преобразуем текстовый уровень логирования в zap.AtomicLevel
	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	// создаём новую конфигурацию логера
	zapcfg := zap.NewProductionConfig()
	// устанавливаем уровень
	zapcfg.Level = lvl
	// создаём логер на основе конфигурации
	zl, err := zapcfg.Build()
	if err != nil {
		return nil, err
	}
	return zl, nil
}

// RestyLogHooks логирует исходящие HTTP-запросы клиента.
// Тело запроса и заголовок Authorization не пишутся.
func RestyLogHooks(client *resty.Client, zaplog *zap.Logger) {
	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(HeaderRequestID) == "" {
			r.SetHeader(HeaderRequestID, uuid.NewString())
		}
		zaplog.Debug("sending outgoing HTTP request",
			zap.String("method", r.Method),
			zap.String("url", r.URL),
			zap.String("request_id", r.Header.Get(HeaderRequestID)),
		)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		zaplog.Info("got outgoing HTTP response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.String("code", strconv.Itoa(resp.StatusCode())),
			zap.String("length", strconv.FormatInt(resp.Size(), 10)),
			zap.String("duration", resp.Time().String()),
			zap.String("request_id", resp.Request.Header.Get(HeaderRequestID)),
		)
		return nil
	})

	client.OnError(func(r *resty.Request, err error) {
		zaplog.Warn("outgoing HTTP request failed",
			zap.String("method", r.Method),
			zap.String("url", r.URL),
			zap.String("request_id", r.Header.Get(HeaderRequestID)),
			zap.Error(err),
		)
	})
}

// middleware-логер для входящих HTTP-запросов.
func RequestLogMdlw(h http.HandlerFunc, zaplog *zap.Logger) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// request body
		bodyBytes, _ := io.ReadAll(r.Body)
		r.Body.Close() //  must close
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		zaplog.Info("got incoming HTTP request",
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("method", r.Method),
			zap.String("body", string(bodyBytes)),
		)

		wl := NewResponseWriterLogger(w)

		handlerStart := time.Now()
		h(wl, r)
		handlerDuration := time.Since(handlerStart)

		zaplog.Info("send HTTP response",
			zap.String("code", strconv.Itoa(wl.statusCode)),
			zap.String("length", strconv.Itoa(wl.length)),
			zap.String("duration", handlerDuration.String()),
		)

	})
}

type responseWriterLogger struct {
	http.ResponseWriter
	statusCode int
	length     int
}

func NewResponseWriterLogger(w http.ResponseWriter) *responseWriterLogger {
	return &responseWriterLogger{w, http.StatusOK, 0}
}

func (wl *responseWriterLogger) WriteHeader(code int) {
	wl.statusCode = code
	wl.ResponseWriter.WriteHeader(code)
}

func (wl *responseWriterLogger) Write(b []byte) (n int, err error) {
	n, err = wl.ResponseWriter.Write(b)
	wl.length += n
	return
}
