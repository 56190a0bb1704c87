package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/rx3lixir/storefront-client/pkg/logger"
)

// refreshKey — единственный ключ singleflight-группы: обновление токена
// процесс-глобально и не параметризовано
const refreshKey = "token-refresh"

// SessionSource — то, что транспорту нужно от менеджера сессии
type SessionSource interface {
	// AccessToken возвращает текущий access-токен или пустую строку
	AccessToken() string
	// RefreshToken выполняет обмен refresh-токена; при отказе
	// менеджер сам очищает сессию
	RefreshToken(ctx context.Context) (string, error)
}

// AuthTransport — перехватчик исходящих запросов: добавляет bearer-заголовок
// и выполняет протокол однократного одновременного обновления токена.
//
// Инварианты:
//   - запросы к эндпоинтам аутентификации никогда не перехватываются;
//   - в полете не более одного запроса обновления токена, сколько бы
//     запросов ни получило 401 одновременно — остальные ждут его результата;
//   - каждый запрос переигрывается не более одного раза.
type AuthTransport struct {
	base    http.RoundTripper
	session SessionSource
	flight  singleflight.Group
	log     logger.Logger

	onUnauthorized func()
	onForbidden    func()
}

// Option настраивает AuthTransport
type Option func(*AuthTransport)

// WithUnauthorizedHook задает обработчик необратимого отказа в аутентификации
// (аналог перенаправления на страницу входа)
func WithUnauthorizedHook(fn func()) Option {
	return func(t *AuthTransport) { t.onUnauthorized = fn }
}

// WithForbiddenHook задает обработчик отказа в авторизации
// (аналог перенаправления на нейтральную страницу)
func WithForbiddenHook(fn func()) Option {
	return func(t *AuthTransport) { t.onForbidden = fn }
}

// New создает перехватчик поверх базового транспорта.
// Менеджер сессии привязывается позже через Bind: клиент аутентификации
// сам ходит через этот транспорт.
func New(base http.RoundTripper, log logger.Logger, opts ...Option) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	t := &AuthTransport{
		base: base,
		log:  log,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Bind привязывает источник сессии. Должен быть вызван до первого
// защищенного запроса; до привязки транспорт прозрачен.
func (t *AuthTransport) Bind(session SessionSource) {
	t.session = session
}

// isAuthPath сообщает, относится ли путь к эндпоинтам аутентификации,
// исключенным из перехвата во избежание бесконечных циклов
func isAuthPath(path string) bool {
	return strings.HasSuffix(path, "/login") ||
		strings.HasSuffix(path, "/register") ||
		strings.HasSuffix(path, "/refresh")
}

// RoundTrip реализует http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.session == nil || isAuthPath(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	authReq := req
	if token := t.session.AccessToken(); token != "" {
		authReq = cloneWithToken(req, token)
	}

	resp, err := t.base.RoundTrip(authReq)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return t.handleUnauthorized(req, resp)

	case http.StatusForbidden:
		// 403 — отказ в авторизации, а не в аутентификации:
		// токен не обновляем
		if t.onForbidden != nil {
			t.onForbidden()
		}
		return resp, nil

	default:
		return resp, nil
	}
}

// handleUnauthorized выполняет протокол обновления токена для запроса,
// получившего 401
func (t *AuthTransport) handleUnauthorized(req *http.Request, resp *http.Response) (*http.Response, error) {
	// Буферизуем исходный ответ: при отказе обновления вернем его как есть
	bufferBody(resp)

	token, err := t.refresh(req.Context())
	if err != nil {
		t.log.Warn("Refresh failed, session terminated", "error", err)
		t.unauthorized()
		return resp, nil
	}

	retry, err := cloneForRetry(req, token)
	if err != nil {
		return resp, nil
	}

	resp.Body.Close()

	return t.base.RoundTrip(retry)
}

// refresh выполняет обновление токена через singleflight:
// одновременные жертвы 401 разделяют один результат, результат
// не переживает завершение полета
func (t *AuthTransport) refresh(ctx context.Context) (string, error) {
	v, err, shared := t.flight.Do(refreshKey, func() (interface{}, error) {
		return t.session.RefreshToken(ctx)
	})
	if err != nil {
		return "", err
	}

	if shared {
		t.log.Debug("Request joined in-flight token refresh")
	}

	return v.(string), nil
}

func (t *AuthTransport) unauthorized() {
	if t.onUnauthorized != nil {
		t.onUnauthorized()
	}
}

// cloneWithToken возвращает копию запроса с bearer-заголовком
func cloneWithToken(req *http.Request, token string) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return clone
}

// cloneForRetry готовит повтор запроса с новым токеном, перематывая тело
func cloneForRetry(req *http.Request, token string) (*http.Request, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}

	return clone, nil
}

// bufferBody вычитывает тело ответа в память, чтобы его можно было
// вернуть вызывающему после неудачного обновления токена
func bufferBody(resp *http.Response) {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
}
