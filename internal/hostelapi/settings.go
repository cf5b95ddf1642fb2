package hostelapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"shamshouse/internal/models"
)

// PublicSettings are the contact details any guest may see.
func (c *Client) PublicSettings(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	if err := c.getCached(ctx, "settings", "/settings", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) AdminSettings(ctx context.Context) (*models.Settings, error) {
	data, err := c.get(ctx, "/admin/settings", true)
	if err != nil {
		return nil, err
	}
	var s models.Settings
	return &s, decode(data, &s)
}

func (c *Client) UpdateSettings(ctx context.Context, s models.Settings) (*models.Settings, error) {
	data, err := c.sendJSON(ctx, http.MethodPut, "/admin/settings", s, true, nil)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "settings")
	var out models.Settings
	return &out, decode(data, &out)
}

func (c *Client) UpdateDoorCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("door code is empty")
	}
	q := url.Values{"newCode": {code}}
	if _, err := c.send(ctx, http.MethodPut, "/admin/settings/door-code?"+q.Encode(), nil, "", true, nil); err != nil {
		return err
	}
	c.invalidate(ctx, "settings")
	return nil
}

// HostelInfo returns the free-form public hostel description.
func (c *Client) HostelInfo(ctx context.Context) (map[string]any, error) {
	info := map[string]any{}
	if err := c.getCached(ctx, "public:hostel-info", "/public/hostel-info", &info); err != nil {
		return nil, err
	}
	return info, nil
}
