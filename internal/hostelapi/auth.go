package hostelapi

import (
	"context"
	"errors"
	"net/http"

	"shamshouse/internal/auth"
	"shamshouse/internal/models"
)

// Login authenticates and stores the returned token in the client's session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	if err := auth.ValidateCredentials(email, password); err != nil {
		return nil, err
	}
	body := map[string]string{"email": email, "password": password}
	data, err := c.sendJSON(ctx, http.MethodPost, "/auth/login", body, false, nil)
	if err != nil {
		return nil, err
	}
	var res models.LoginResult
	if err := decode(data, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, errors.New("hostel api: login returned no token")
	}
	c.session.Set(res.Token)
	return &res, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*models.AdminUser, error) {
	data, err := c.get(ctx, "/auth/me", true)
	if err != nil {
		return nil, err
	}
	var u models.AdminUser
	return &u, decode(data, &u)
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	if len(next) < auth.MinPasswordLength {
		return auth.ErrPasswordTooShort
	}
	body := map[string]string{"currentPassword": current, "newPassword": next}
	_, err := c.sendJSON(ctx, http.MethodPost, "/auth/change-password", body, true, nil)
	return err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.sendJSON(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, false, nil)
	return err
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < auth.MinPasswordLength {
		return auth.ErrPasswordTooShort
	}
	body := map[string]string{"token": token, "newPassword": password}
	_, err := c.sendJSON(ctx, http.MethodPost, "/auth/reset-password", body, false, nil)
	return err
}
