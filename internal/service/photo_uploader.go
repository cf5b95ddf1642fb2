package service

import (
	"context"
	"errors"

	"shamshouse/internal/domain"

	"github.com/rs/zerolog"
)

var ErrNoPhotosUploaded = errors.New("no photo could be uploaded")

// PhotoService uploads pictures one at a time. A failed file is skipped.
type PhotoService struct {
	api    domain.PhotoAPI
	logger *zerolog.Logger
}

func NewPhotoService(api domain.PhotoAPI, logger *zerolog.Logger) *PhotoService {
	return &PhotoService{api: api, logger: logger}
}

// Upload returns the URLs of the uploaded files in order. progress is called
// after each successful upload.
func (s *PhotoService) Upload(ctx context.Context, files []domain.PhotoFile, progress func(done, total int)) ([]string, error) {
	urls := make([]string, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return urls, err
		}
		url, err := s.uploadOne(ctx, f)
		if err != nil {
			s.logger.Warn().Err(err).Int("index", i+1).Str("file", f.Name).Msg("photo upload failed")
			continue
		}
		urls = append(urls, url)
		if progress != nil {
			progress(len(urls), len(files))
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoPhotosUploaded
	}
	return urls, nil
}

func (s *PhotoService) uploadOne(ctx context.Context, f domain.PhotoFile) (string, error) {
	rc, err := f.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return s.api.UploadPhoto(ctx, f.Name, rc)
}
