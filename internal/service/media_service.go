package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/rs/zerolog"

	"stepstunner/api/internal/apperr"
	"stepstunner/api/internal/ids"
	"stepstunner/api/internal/storage"
)

const maxImageBytes = 5 << 20 // 5 MiB

// MediaService moves uploaded images into the object store and hands back
// their public URLs.
type MediaService struct {
	store *storage.ObjectStore
	log   zerolog.Logger
}

func NewMediaService(store *storage.ObjectStore, log zerolog.Logger) *MediaService {
	return &MediaService{store: store, log: log}
}

func (s *MediaService) UploadProductImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	return s.upload(ctx, s.store.ImageBucket(), file, header)
}

func (s *MediaService) UploadAvatar(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	return s.upload(ctx, s.store.AvatarBucket(), file, header)
}

func (s *MediaService) upload(ctx context.Context, bucket string, file multipart.File, header *multipart.FileHeader) (string, error) {
	if file == nil || header == nil {
		return "", apperr.Validation("file required")
	}
	if header.Size > maxImageBytes {
		return "", apperr.Validation("image too large")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("read upload: %w", err))
	}
	if len(data) == 0 {
		return "", apperr.Validation("empty file")
	}
	if int64(len(data)) > maxImageBytes {
		return "", apperr.Validation("image too large")
	}

	contentType, err := storage.SniffImage(data)
	if err != nil {
		return "", apperr.Validation("unsupported image format")
	}

	key := ids.New() + extensionFor(contentType)
	url, err := s.store.Put(ctx, bucket, key, data, contentType)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return url, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}
