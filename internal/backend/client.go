package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// client — общая основа типизированных REST-клиентов.
// Все клиенты разделяют один *http.Client, чей транспорт
// выполняет протокол обновления токена.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(httpClient *http.Client, baseURL string) client {
	return client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// doJSON выполняет запрос с JSON-телом in и декодирует ответ в out.
// Сетевая ошибка оборачивается в ErrUnreachable, статус 4xx/5xx — в APIError.
func (c *client) doJSON(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	// Несовпадение формы ответа — громкая ошибка, а не молчаливый дефолт
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unexpected response shape from %s %s: %w", method, path, err)
	}

	return nil
}

// apiError строит APIError из ответа, вытаскивая сообщение бэкенда, если оно есть
func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var eb errorBody
	msg := ""
	if json.Unmarshal(data, &eb) == nil {
		if eb.Error != "" {
			msg = eb.Error
		} else {
			msg = eb.Message
		}
	}

	return &APIError{Status: resp.StatusCode, Message: msg}
}
