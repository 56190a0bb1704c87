package backend

import (
	"errors"
	"fmt"
)

// ErrUnreachable возвращается при сетевой ошибке (статус 0 в терминах браузера)
var ErrUnreachable = errors.New("cannot reach server")

// APIError представляет ответ бэкенда со статусом 4xx/5xx.
// Message содержит текст ошибки из тела ответа, если бэкенд его прислал.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend responded %d", e.Status)
}

// IsStatus сообщает, является ли err ошибкой бэкенда с данным HTTP-статусом
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == status
	}
	return false
}

// errorBody — тело ошибки бэкенда; сервисы платформы
// присылают либо {"error": "..."}, либо {"message": "..."}
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
