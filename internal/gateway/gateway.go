package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iurnickita/washportal/internal/credstore"
	"github.com/iurnickita/washportal/internal/gateway/config"
	"github.com/iurnickita/washportal/internal/logger"
	"github.com/iurnickita/washportal/internal/model"
	"github.com/iurnickita/washportal/internal/token"
)

var (
	ErrNetwork       = errors.New("network error")
	ErrLoginRejected = errors.New("login rejected")
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

// Request - описание запроса к API. Gateway его не изменяет.
type Request struct {
	Method string
	// Абсолютный URL или путь относительно BaseURL
	URL       string
	Header    http.Header
	Body      []byte
	Multipart *Multipart
}

// Multipart - тело multipart/form-data (загрузка файлов).
// Содержимое файлов держится в памяти, чтобы запрос можно было повторить.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

type File struct {
	Param   string
	Name    string
	Content []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON ответы эндпоинтов токенов
type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshAnswer struct {
	Access string `json:"access"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginAnswer struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Gateway добавляет Bearer-токен к каждому запросу и один раз
// обновляет access-токен после 401.
//
// Параллельные вызовы Send, получившие 401, обновляют токен независимо
// друг от друга: повторные запросы на refresh не объединяются.
type Gateway struct {
	cfg    config.Config
	client *resty.Client
	store  credstore.Store
	zaplog *zap.Logger
}

func New(cfg config.Config, store credstore.Store, zaplog *zap.Logger) *Gateway {
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = config.DefaultRefreshPath
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = config.DefaultLoginPath
	}

	client := resty.New().SetBaseURL(cfg.BaseURL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	logger.RestyLogHooks(client, zaplog)

	return &Gateway{
		cfg:    cfg,
		client: client,
		store:  store,
		zaplog: zaplog,
	}
}

// Шаги обработки одного вызова Send
type step int

const (
	stepAttempt step = iota
	stepRefresh
	stepRetry
	stepDone
)

func (s step) String() string {
	switch s {
	case stepAttempt:
		return "attempt"
	case stepRefresh:
		return "refresh"
	case stepRetry:
		return "retry"
	case stepDone:
		return "done"
	default:
		return "unknown"
	}
}

// call - состояние одного вызова Send
type call struct {
	req    Request
	method string
	token  string
	resp   *Response
	err    error
}

// Send выполняет запрос. Ответ с любым HTTP-статусом не считается ошибкой;
// ошибка возвращается только при сбое транспорта (ErrNetwork) или хранилища.
func (g *Gateway) Send(ctx context.Context, req Request) (*Response, error) {
	c := &call{
		req:    req,
		method: effectiveMethod(req.Method),
	}
	for s := stepAttempt; s != stepDone; {
		s = g.advance(ctx, c, s)
	}
	return c.resp, c.err
}

func (g *Gateway) advance(ctx context.Context, c *call, s step) step {
	switch s {
	case stepAttempt:
		accessToken, err := g.accessToken(ctx)
		if err != nil {
			c.err = err
			return stepDone
		}
		c.resp, c.err = g.do(ctx, c, accessToken)
		if c.err != nil || c.resp.StatusCode != http.StatusUnauthorized {
			return stepDone
		}
		return stepRefresh

	case stepRefresh:
		newToken, ok := g.Refresh(ctx)
		if !ok {
			// исходный 401 остается результатом
			return stepDone
		}
		c.token = newToken
		return stepRetry

	case stepRetry:
		c.resp, c.err = g.do(ctx, c, c.token)
		return stepDone

	default:
		return stepDone
	}
}

// Refresh обновляет access-токен. Ошибки не возвращаются, только логируются;
// refresh-токен при этом не удаляется.
func (g *Gateway) Refresh(ctx context.Context) (string, bool) {
	refreshToken, err := g.store.Get(ctx, model.KeyRefreshToken)
	if err != nil && !errors.Is(err, credstore.ErrNotFound) {
		g.zaplog.Warn("token refresh: read refresh token", zap.Error(err))
		return "", false
	}
	if refreshToken == "" {
		g.zaplog.Warn("token refresh: no refresh token available")
		return "", false
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader(headerContentType, contentTypeJSON).
		SetBody(refreshRequest{Refresh: refreshToken}).
		Post(g.cfg.RefreshPath)
	if err != nil {
		g.zaplog.Warn("token refresh: request failed", zap.Error(err))
		return "", false
	}
	if !resp.IsSuccess() {
		g.zaplog.Warn("token refresh: rejected", zap.Int("code", resp.StatusCode()))
		return "", false
	}

	var answer refreshAnswer
	if err := json.Unmarshal(resp.Body(), &answer); err != nil {
		g.zaplog.Warn("token refresh: bad answer", zap.Error(err))
		return "", false
	}
	if answer.Access == "" {
		g.zaplog.Warn("token refresh: answer has no access token")
		return "", false
	}

	if err := g.store.Set(ctx, model.KeyAccessToken, answer.Access); err != nil {
		// токен все равно годится для повтора запроса
		g.zaplog.Error("token refresh: store access token", zap.Error(err))
	}
	g.logTokenExpiry(answer.Access)

	return answer.Access, true
}

// Login получает пару токенов и сохраняет ее
func (g *Gateway) Login(ctx context.Context, email string, password string) (model.Credentials, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader(headerContentType, contentTypeJSON).
		SetBody(loginRequest{Email: email, Password: password}).
		Post(g.cfg.LoginPath)
	if err != nil {
		return model.Credentials{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	switch {
	case resp.IsSuccess():
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusBadRequest:
		return model.Credentials{}, ErrLoginRejected
	default:
		return model.Credentials{}, fmt.Errorf("login request status: %d", resp.StatusCode())
	}

	var answer loginAnswer
	if err := json.Unmarshal(resp.Body(), &answer); err != nil {
		return model.Credentials{}, fmt.Errorf("login answer: %w", err)
	}
	creds := model.Credentials{Access: answer.Access, Refresh: answer.Refresh}
	if err := credstore.SaveCredentials(ctx, g.store, creds); err != nil {
		return model.Credentials{}, err
	}
	g.logTokenExpiry(creds.Access)

	return creds, nil
}

// Logout удаляет оба токена. Редирект на вход - забота вызывающего.
func (g *Gateway) Logout(ctx context.Context) error {
	return credstore.Clear(ctx, g.store)
}

func (g *Gateway) accessToken(ctx context.Context) (string, error) {
	accessToken, err := g.store.Get(ctx, model.KeyAccessToken)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read access token: %w", err)
	}
	return accessToken, nil
}

func (g *Gateway) do(ctx context.Context, c *call, accessToken string) (*Response, error) {
	r := g.client.R().SetContext(ctx)
	for key, values := range buildHeader(c.req, c.method, accessToken) {
		for _, value := range values {
			r.Header.Add(key, value)
		}
	}

	switch {
	case c.req.Multipart != nil:
		if len(c.req.Multipart.Fields) > 0 {
			r.SetMultipartFormData(c.req.Multipart.Fields)
		}
		for _, f := range c.req.Multipart.Files {
			r.SetFileReader(f.Param, f.Name, bytes.NewReader(f.Content))
		}
	case c.req.Body != nil:
		r.SetBody(c.req.Body)
	}

	resp, err := r.Execute(c.method, c.req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// buildHeader собирает заголовки попытки: заголовки вызывающего плюс Authorization
func buildHeader(req Request, method string, accessToken string) http.Header {
	header := req.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if accessToken != "" {
		header.Set(headerAuthorization, "Bearer "+accessToken)
	}

	if req.Multipart != nil {
		// boundary выставит транспорт
		header.Del(headerContentType)
	} else if method != http.MethodGet && method != http.MethodHead && header.Get(headerContentType) == "" {
		header.Set(headerContentType, contentTypeJSON)
	}
	return header
}

func effectiveMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(method)
}

func (g *Gateway) logTokenExpiry(accessToken string) {
	claims, err := token.Inspect(accessToken)
	if err != nil {
		return
	}
	if exp, err := claims.Expiry(); err == nil {
		g.zaplog.Debug("access token updated",
			zap.String("user", claims.User()),
			zap.Time("expires_at", exp),
		)
	}
}
