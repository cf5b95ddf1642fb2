package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"shamshouse/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func photo(name string, openErr error) domain.PhotoFile {
	return domain.PhotoFile{
		Name: name,
		Open: func(context.Context) (io.ReadCloser, error) {
			if openErr != nil {
				return nil, openErr
			}
			return io.NopCloser(strings.NewReader("jpeg")), nil
		},
	}
}

func TestPhotoService_UploadSkipsFailures(t *testing.T) {
	api := new(mockHostel)
	logger := zerolog.Nop()
	svc := NewPhotoService(api, &logger)

	api.On("UploadPhoto", mock.Anything, "a.jpg", mock.Anything).Return("https://cdn/a.jpg", nil).Once()
	api.On("UploadPhoto", mock.Anything, "b.jpg", mock.Anything).Return("", errors.New("too large")).Once()
	api.On("UploadPhoto", mock.Anything, "d.jpg", mock.Anything).Return("https://cdn/d.jpg", nil).Once()

	var calls [][2]int
	urls, err := svc.Upload(context.Background(), []domain.PhotoFile{
		photo("a.jpg", nil),
		photo("b.jpg", nil),
		photo("c.jpg", errors.New("telegram download failed")),
		photo("d.jpg", nil),
	}, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/d.jpg"}, urls)
	assert.Equal(t, [][2]int{{1, 4}, {2, 4}}, calls)
	api.AssertExpectations(t)
}

func TestPhotoService_NothingUploaded(t *testing.T) {
	api := new(mockHostel)
	logger := zerolog.Nop()
	svc := NewPhotoService(api, &logger)
	api.On("UploadPhoto", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("down"))

	_, err := svc.Upload(context.Background(), []domain.PhotoFile{photo("a.jpg", nil)}, nil)
	assert.ErrorIs(t, err, ErrNoPhotosUploaded)

	_, err = svc.Upload(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoPhotosUploaded)
}

func TestPhotoService_Cancelled(t *testing.T) {
	api := new(mockHostel)
	logger := zerolog.Nop()
	svc := NewPhotoService(api, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Upload(ctx, []domain.PhotoFile{photo("a.jpg", nil)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	api.AssertNotCalled(t, "UploadPhoto", mock.Anything, mock.Anything, mock.Anything)
}
