package hostelapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"shamshouse/internal/models"
)

func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := c.getCached(ctx, "rooms", "/rooms", &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	if err := c.getCached(ctx, fmt.Sprintf("rooms:%d", id), fmt.Sprintf("/rooms/%d", id), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// AvailableRooms is never cached: the backend is the authority on availability.
func (c *Client) AvailableRooms(ctx context.Context, checkIn, checkOut models.Date) ([]models.Room, error) {
	q := url.Values{}
	q.Set("checkIn", checkIn.String())
	q.Set("checkOut", checkOut.String())
	data, err := c.get(ctx, "/rooms/available?"+q.Encode(), false)
	if err != nil {
		return nil, err
	}
	var rooms []models.Room
	if err := decode(data, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// UploadPhoto sends one image as multipart field "photo" and returns its URL.
func (c *Client) UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read photo %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	data, err := c.send(ctx, http.MethodPost, "/rooms/upload-photo", &buf, mw.FormDataContentType(), true, nil)
	if err != nil {
		return "", err
	}
	var photoURL string
	if err := decode(data, &photoURL); err != nil {
		return "", err
	}
	return photoURL, nil
}

func (c *Client) CreateRoom(ctx context.Context, in models.RoomInput) (*models.Room, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, "/rooms/create-with-urls", in, true, nil)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "rooms")
	var room models.Room
	return &room, decode(data, &room)
}

func (c *Client) UpdateRoom(ctx context.Context, id int64, in models.RoomInput) (*models.Room, error) {
	data, err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/rooms/%d", id), in, true, nil)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "rooms")
	var room models.Room
	return &room, decode(data, &room)
}

func (c *Client) DeleteRoom(ctx context.Context, id int64) error {
	if _, err := c.send(ctx, http.MethodDelete, fmt.Sprintf("/admin/rooms/%d", id), nil, "", true, nil); err != nil {
		return err
	}
	c.invalidate(ctx, "rooms")
	return nil
}
