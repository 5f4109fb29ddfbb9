package storage

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/imgvault/imgvault/internal/b2"
	"github.com/imgvault/imgvault/internal/errdefs"
)

// lastModifiedHeader is written by the upload handshake and echoed back
// on downloads.
const lastModifiedHeader = "X-Bz-Info-src_last_modified_millis"

// B2 adapts the low-level client to the ImageStorage contract.
type B2 struct {
	client *b2.Client
}

func NewB2(client *b2.Client) *B2 {
	return &B2{client: client}
}

func (s *B2) Store(ctx context.Context, user, id string, data []byte) error {
	key, err := ObjectPath(user, id)
	if err != nil {
		return err
	}
	if err := s.client.Upload(ctx, key, data); err != nil {
		return fmt.Errorf("store image %s: %w", key, err)
	}
	return nil
}

func (s *B2) Delete(ctx context.Context, user, id string) error {
	key, err := ObjectPath(user, id)
	if err != nil {
		return err
	}
	if err := s.client.DeleteFile(ctx, key); err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}

func (s *B2) GetImage(ctx context.Context, user, id string) ([]byte, error) {
	key, err := ObjectPath(user, id)
	if err != nil {
		return nil, err
	}
	data, err := s.client.GetFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", key, err)
	}
	return data, nil
}

func (s *B2) LastModified(ctx context.Context, user, id string) (time.Time, error) {
	key, err := ObjectPath(user, id)
	if err != nil {
		return time.Time{}, err
	}
	info, err := s.client.GetFileInfo(ctx, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat image %s: %w", key, err)
	}
	if v := headerValue(info, lastModifiedHeader); v != "" {
		millis, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return time.UnixMilli(millis), nil
		}
	}
	if v := headerValue(info, "Last-Modified"); v != "" {
		t, err := http.ParseTime(v)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errdefs.Newf(errdefs.ErrUnavailable, "no modification time reported for %s", key)
}

func (s *B2) Exists(ctx context.Context, user, id string) (bool, error) {
	key, err := ObjectPath(user, id)
	if err != nil {
		return false, err
	}
	return s.client.FileExists(ctx, key)
}

func (s *B2) Status(ctx context.Context) bool {
	return s.client.Status(ctx)
}

// EmptyBucket deletes every file version in the backing bucket.
func (s *B2) EmptyBucket(ctx context.Context) error {
	return s.client.EmptyBucket(ctx)
}

// headerValue looks up a flattened header map case-insensitively; remote
// services do not agree on header name casing.
func headerValue(info map[string]string, name string) string {
	for k, v := range info {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
