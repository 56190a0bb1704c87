package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisChecker проверка Redis
func RedisChecker(client *redis.Client) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()

		// Пингуем Redis
		_, err := client.Ping(ctx).Result()
		duration := time.Since(start)

		if err != nil {
			return CheckResult{
				Status: StatusDown,
				Error:  err.Error(),
				Details: map[string]any{
					"duration_ms": duration.Milliseconds(),
				},
			}
		}

		return CheckResult{
			Status: StatusUp,
			Details: map[string]any{
				"duration_ms": duration.Milliseconds(),
			},
		}
	})
}

// BackendChecker проверка достижимости REST-бэкенда.
// Любой HTTP-ответ считается признаком жизни: важно соединение,
// а не статус (защищенные эндпоинты отвечают 401 без сессии).
func BackendChecker(client *http.Client, url string) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return CheckResult{Status: StatusDown, Error: err.Error()}
		}

		resp, err := client.Do(req)
		duration := time.Since(start)

		if err != nil {
			return CheckResult{
				Status: StatusDown,
				Error:  err.Error(),
				Details: map[string]any{
					"duration_ms": duration.Milliseconds(),
				},
			}
		}
		resp.Body.Close()

		return CheckResult{
			Status: StatusUp,
			Details: map[string]any{
				"duration_ms": duration.Milliseconds(),
				"http_status": resp.StatusCode,
			},
		}
	})
}
