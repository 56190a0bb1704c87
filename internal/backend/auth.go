package backend

import (
	"context"
	"fmt"
	"net/http"
)

// Роли пользователей платформы
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// User — профиль аутентифицированного пользователя
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// LoginRequest — учетные данные для входа
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest — данные регистрации нового пользователя
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse — ответ на login/register/refresh: пара токенов и профиль
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// UpdateProfileRequest — изменяемые поля профиля
type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Address — сохраненный адрес доставки
type Address struct {
	ID          int64  `json:"id,omitempty"`
	FullName    string `json:"fullName"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
	PhoneNumber string `json:"phoneNumber"`
}

// MessageResponse — ответ эндпоинтов восстановления пароля
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthClient — типизированный клиент сервиса аутентификации
type AuthClient struct {
	client
}

// NewAuthClient создает клиент сервиса аутентификации
func NewAuthClient(httpClient *http.Client, baseURL string) *AuthClient {
	return &AuthClient{client: newClient(httpClient, baseURL)}
}

// Login обменивает учетные данные на пару токенов и профиль
func (c *AuthClient) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/login", nil, req, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response is missing accessToken")
	}

	return &resp, nil
}

// Register регистрирует пользователя и сразу возвращает сессию
func (c *AuthClient) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/register", nil, req, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("register response is missing accessToken")
	}

	return &resp, nil
}

// Refresh обменивает refresh-токен на новую пару токенов
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/refresh", nil, body, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("refresh response is missing accessToken")
	}

	return &resp, nil
}

// Logout отзывает refresh-токен на бэкенде
func (c *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	return c.doJSON(ctx, http.MethodPost, "/logout", nil, body, nil)
}

// Profile возвращает профиль текущего пользователя
func (c *AuthClient) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/profile", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile обновляет профиль текущего пользователя
func (c *AuthClient) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPut, "/profile", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Addresses возвращает сохраненные адреса пользователя
func (c *AuthClient) Addresses(ctx context.Context) ([]Address, error) {
	var addresses []Address
	if err := c.doJSON(ctx, http.MethodGet, "/addresses", nil, nil, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

// AddAddress сохраняет новый адрес
func (c *AuthClient) AddAddress(ctx context.Context, address Address) (*Address, error) {
	var saved Address
	if err := c.doJSON(ctx, http.MethodPost, "/addresses", nil, address, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateAddress обновляет сохраненный адрес
func (c *AuthClient) UpdateAddress(ctx context.Context, address Address) (*Address, error) {
	var saved Address
	path := fmt.Sprintf("/addresses/%d", address.ID)
	if err := c.doJSON(ctx, http.MethodPut, path, nil, address, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteAddress удаляет сохраненный адрес
func (c *AuthClient) DeleteAddress(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/addresses/%d", id), nil, nil, nil)
}

// ForgotPassword запрашивает письмо для восстановления пароля
func (c *AuthClient) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	var resp MessageResponse
	body := map[string]string{"email": email}
	if err := c.doJSON(ctx, http.MethodPost, "/forgot-password", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword устанавливает новый пароль по токену восстановления
func (c *AuthClient) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResponse, error) {
	var resp MessageResponse
	body := map[string]string{"token": token, "newPassword": newPassword}
	if err := c.doJSON(ctx, http.MethodPost, "/reset-password", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
