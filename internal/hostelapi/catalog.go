package hostelapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"shamshouse/internal/models"
)

func (c *Client) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if err := c.getCached(ctx, "services", "/services", &services); err != nil {
		return nil, err
	}
	return services, nil
}

func (c *Client) ServicesByCategory(ctx context.Context, category models.ServiceCategory) ([]models.Service, error) {
	var services []models.Service
	path := "/services/category/" + url.PathEscape(string(category))
	if err := c.getCached(ctx, "services:category:"+string(category), path, &services); err != nil {
		return nil, err
	}
	return services, nil
}

func (c *Client) CreateService(ctx context.Context, s models.Service) (*models.Service, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, "/admin/services", s, true, nil)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "services", "packs")
	var out models.Service
	return &out, decode(data, &out)
}

func (c *Client) UpdateService(ctx context.Context, id int64, s models.Service) (*models.Service, error) {
	data, err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/services/%d", id), s, true, nil)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "services", "packs")
	var out models.Service
	return &out, decode(data, &out)
}

func (c *Client) DeleteService(ctx context.Context, id int64) error {
	if _, err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/admin/services/%d", id), nil, "", true, nil); err != nil {
		return err
	}
	c.invalidate(ctx, "services", "packs")
	return nil
}

func (c *Client) ListPacks(ctx context.Context) ([]models.Pack, error) {
	var packs []models.Pack
	if err := c.getCached(ctx, "packs", "/packs", &packs); err != nil {
		return nil, err
	}
	return packs, nil
}

func (c *Client) GetPack(ctx context.Context, id int64) (*models.Pack, error) {
	var pack models.Pack
	if err := c.getCached(ctx, fmt.Sprintf("packs:%d", id), fmt.Sprintf("/packs/%d", id), &pack); err != nil {
		return nil, err
	}
	return &pack, nil
}

func (c *Client) CreatePack(ctx context.Context, in models.PackInput) (*models.Pack, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, "/admin/packs", in, true, nil)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "packs")
	var out models.Pack
	return &out, decode(data, &out)
}

func (c *Client) UpdatePack(ctx context.Context, id int64, in models.PackInput) (*models.Pack, error) {
	data, err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/packs/%d", id), in, true, nil)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "packs")
	var out models.Pack
	return &out, decode(data, &out)
}

func (c *Client) DeletePack(ctx context.Context, id int64) error {
	if _, err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/admin/packs/%d", id), nil, "", true, nil); err != nil {
		return err
	}
	c.invalidate(ctx, "packs")
	return nil
}
