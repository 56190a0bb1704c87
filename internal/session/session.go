package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rx3lixir/storefront-client/internal/backend"
	"github.com/rx3lixir/storefront-client/internal/store"
	"github.com/rx3lixir/storefront-client/pkg/logger"
)

var (
	// ErrInvalidCredentials возвращается при отказе бэкенда в аутентификации
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSession возвращается, когда операция требует активной сессии
	ErrNoSession = errors.New("no active session")
)

// Manager владеет парой токенов и снимком профиля пользователя.
// Токены и профиль записываются и очищаются атомарно под одним мьютексом
// и сохраняются в долговременном хранилище при каждом изменении.
type Manager struct {
	auth    *backend.AuthClient
	storage store.StateStorage
	log     logger.Logger

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *backend.User

	listeners []chan *backend.User
	onLogout  []func()
}

// NewManager создает менеджер сессии и восстанавливает
// сохраненное состояние из хранилища
func NewManager(ctx context.Context, auth *backend.AuthClient, storage store.StateStorage, log logger.Logger) *Manager {
	m := &Manager{
		auth:    auth,
		storage: storage,
		log:     log,
	}

	m.restore(ctx)

	return m
}

// restore загружает сохраненные токены и профиль при старте процесса
func (m *Manager) restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var token string
	if err := m.storage.Get(ctx, store.KeyAccessToken, &token); err == nil {
		m.accessToken = token
	}

	token = ""
	if err := m.storage.Get(ctx, store.KeyRefreshToken, &token); err == nil {
		m.refreshToken = token
	}

	var user backend.User
	if err := m.storage.Get(ctx, store.KeyCurrentUser, &user); err == nil {
		m.user = &user
	} else if !errors.Is(err, store.ErrNotFound) {
		m.log.Warn("Failed to restore cached user", "error", err)
	}
}

// OnLogout регистрирует хук, выполняемый при очистке сессии
// (сброс зависимого состояния корзины)
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	m.onLogout = append(m.onLogout, fn)
	m.mu.Unlock()
}

// Subscribe возвращает канал с последним известным профилем пользователя.
// Канал буферизован последним значением: поздний подписчик сразу получает
// текущее состояние, при изменении устаревшее значение замещается.
func (m *Manager) Subscribe() <-chan *backend.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan *backend.User, 1)
	ch <- m.user
	m.listeners = append(m.listeners, ch)

	return ch
}

// notifyLocked рассылает текущий профиль подписчикам; вызывается под мьютексом
func (m *Manager) notifyLocked() {
	for _, ch := range m.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- m.user
	}
}

// Login обменивает учетные данные на сессию. Без повторов:
// 401 превращается в ErrInvalidCredentials, сетевая ошибка — в ErrUnreachable.
func (m *Manager) Login(ctx context.Context, email, password string) (*backend.User, error) {
	resp, err := m.auth.Login(ctx, backend.LoginRequest{Email: email, Password: password})
	if err != nil {
		if backend.IsStatus(err, http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	m.saveAuthData(ctx, resp)
	m.log.Info("Login successful", "email", resp.User.Email, "role", resp.User.Role)

	return m.userCopy(), nil
}

// Register регистрирует пользователя и сохраняет полученную сессию
func (m *Manager) Register(ctx context.Context, name, email, password string) (*backend.User, error) {
	resp, err := m.auth.Register(ctx, backend.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	m.saveAuthData(ctx, resp)
	m.log.Info("Registration successful", "email", resp.User.Email)

	return m.userCopy(), nil
}

// Logout оптимистично завершает сессию: локальное состояние очищается
// синхронно, отзыв токена на бэкенде уходит вдогонку и его ошибка
// только логируется
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	refreshToken := m.refreshToken
	m.mu.Unlock()

	m.clearAuthData(ctx)
	m.log.Info("Local session cleared")

	if refreshToken == "" {
		return
	}

	go func() {
		if err := m.auth.Logout(context.Background(), refreshToken); err != nil {
			m.log.Warn("Backend logout failed, ignored", "error", err)
		}
	}()
}

// RefreshToken обменивает сохраненный refresh-токен на новую пару токенов.
// При успехе токены и профиль заменяются атомарно, при отказе сессия
// очищается целиком и пользователю придется войти заново.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	refreshToken := m.refreshToken
	m.mu.RUnlock()

	if refreshToken == "" {
		m.clearAuthData(ctx)
		return "", ErrNoSession
	}

	resp, err := m.auth.Refresh(ctx, refreshToken)
	if err != nil {
		m.log.Error("Token refresh failed", "error", err)
		m.clearAuthData(ctx)
		return "", err
	}

	m.saveAuthData(ctx, resp)
	m.log.Debug("Token refreshed successfully")

	return resp.AccessToken, nil
}

// AccessToken возвращает текущий access-токен (пустая строка — нет сессии)
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// IsAuthenticated сообщает, есть ли активная сессия
func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// CurrentUser возвращает копию кэшированного профиля или nil
func (m *Manager) CurrentUser() *backend.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// HasRole сообщает, имеет ли текущий пользователь данную роль
func (m *Manager) HasRole(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.user.Role == role
}

// IsAdmin сообщает, является ли текущий пользователь администратором
func (m *Manager) IsAdmin() bool {
	return m.HasRole(backend.RoleAdmin)
}

// RefreshProfile перечитывает профиль с бэкенда и обновляет кэш
func (m *Manager) RefreshProfile(ctx context.Context) (*backend.User, error) {
	user, err := m.auth.Profile(ctx)
	if err != nil {
		return nil, err
	}

	m.setUser(ctx, user)
	return m.userCopy(), nil
}

// UpdateProfile сохраняет изменения профиля и обновляет кэш
func (m *Manager) UpdateProfile(ctx context.Context, req backend.UpdateProfileRequest) (*backend.User, error) {
	user, err := m.auth.UpdateProfile(ctx, req)
	if err != nil {
		return nil, err
	}

	m.setUser(ctx, user)
	m.log.Info("Profile updated", "email", user.Email)
	return m.userCopy(), nil
}

// saveAuthData атомарно сохраняет пару токенов и профиль
func (m *Manager) saveAuthData(ctx context.Context, resp *backend.AuthResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		m.refreshToken = resp.RefreshToken
	}
	user := resp.User
	m.user = &user

	if err := m.storage.Set(ctx, store.KeyAccessToken, m.accessToken); err != nil {
		m.log.Error("Failed to persist access token", "error", err)
	}
	if err := m.storage.Set(ctx, store.KeyRefreshToken, m.refreshToken); err != nil {
		m.log.Error("Failed to persist refresh token", "error", err)
	}
	if err := m.storage.Set(ctx, store.KeyCurrentUser, m.user); err != nil {
		m.log.Error("Failed to persist user profile", "error", err)
	}

	m.notifyLocked()
}

// clearAuthData атомарно очищает сессию и выполняет logout-хуки
func (m *Manager) clearAuthData(ctx context.Context) {
	m.mu.Lock()

	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil

	for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken, store.KeyCurrentUser} {
		if err := m.storage.Delete(ctx, key); err != nil {
			m.log.Error("Failed to clear persisted state", "key", key, "error", err)
		}
	}

	m.notifyLocked()
	hooks := m.onLogout
	m.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// setUser обновляет кэшированный профиль, не трогая токены
func (m *Manager) setUser(ctx context.Context, user *backend.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.user = user
	if err := m.storage.Set(ctx, store.KeyCurrentUser, m.user); err != nil {
		m.log.Error("Failed to persist user profile", "error", err)
	}
	m.notifyLocked()
}

func (m *Manager) userCopy() *backend.User {
	return m.CurrentUser()
}

// Addresses возвращает сохраненные адреса пользователя
func (m *Manager) Addresses(ctx context.Context) ([]backend.Address, error) {
	return m.auth.Addresses(ctx)
}

// AddAddress сохраняет новый адрес в профиле
func (m *Manager) AddAddress(ctx context.Context, address backend.Address) (*backend.Address, error) {
	return m.auth.AddAddress(ctx, address)
}

// UpdateAddress обновляет сохраненный адрес
func (m *Manager) UpdateAddress(ctx context.Context, address backend.Address) (*backend.Address, error) {
	return m.auth.UpdateAddress(ctx, address)
}

// DeleteAddress удаляет сохраненный адрес
func (m *Manager) DeleteAddress(ctx context.Context, id int64) error {
	return m.auth.DeleteAddress(ctx, id)
}

// ForgotPassword запрашивает восстановление пароля
func (m *Manager) ForgotPassword(ctx context.Context, email string) (*backend.MessageResponse, error) {
	return m.auth.ForgotPassword(ctx, email)
}

// ResetPassword устанавливает новый пароль по токену восстановления
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) (*backend.MessageResponse, error) {
	return m.auth.ResetPassword(ctx, token, newPassword)
}
