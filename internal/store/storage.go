package store

import (
	"context"
	"errors"
)

// Фиксированные имена ключей долговременного состояния клиента.
// Имена совпадают с ключами, под которыми состояние хранилось исторически.
const (
	KeyAccessToken        = "accessToken"
	KeyRefreshToken       = "refreshToken"
	KeyCurrentUser        = "current_user"
	KeyAdminNotifications = "admin_notifications"
	KeyPendingPayment     = "pending_payment"
)

// ErrNotFound возвращается, когда значение под ключом отсутствует
var ErrNotFound = errors.New("state key not found")

// StateStorage определяет интерфейс долговременного состояния клиента.
// Значения сериализуются в JSON и хранятся под фиксированными именами,
// читаются при старте процесса и записываются при каждом изменении.
type StateStorage interface {
	// Get читает значение под ключом и декодирует его в v.
	// Возвращает ErrNotFound, если значение отсутствует.
	Get(ctx context.Context, key string, v any) error
	// Set сериализует v и сохраняет его под ключом
	Set(ctx context.Context, key string, v any) error
	// Delete удаляет значение под ключом. Отсутствие ключа не является ошибкой.
	Delete(ctx context.Context, key string) error
	Close() error
}
