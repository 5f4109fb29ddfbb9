package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imgvault/imgvault/internal/errdefs"
)

// Local stores images under a base directory on the filesystem.
type Local struct {
	BasePath string
}

func NewLocal(path string) *Local {
	return &Local{BasePath: path}
}

func (l *Local) target(user, id string) (string, error) {
	key, err := ObjectPath(user, id)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.BasePath, filepath.FromSlash(key)), nil
}

func (l *Local) Store(ctx context.Context, user, id string, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	target, err := l.target(user, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	return os.WriteFile(target, data, 0o600)
}

func (l *Local) Delete(ctx context.Context, user, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	target, err := l.target(user, id)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return errdefs.Newf(errdefs.ErrNotFound, "image %s/%s does not exist", user, id)
		}
		return err
	}
	return nil
}

func (l *Local) GetImage(ctx context.Context, user, id string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	target, err := l.target(user, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.Newf(errdefs.ErrNotFound, "image %s/%s does not exist", user, id)
		}
		return nil, err
	}
	return data, nil
}

func (l *Local) LastModified(ctx context.Context, user, id string) (time.Time, error) {
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	default:
	}
	target, err := l.target(user, id)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, errdefs.Newf(errdefs.ErrNotFound, "image %s/%s does not exist", user, id)
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (l *Local) Exists(ctx context.Context, user, id string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	target, err := l.target(user, id)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *Local) Status(ctx context.Context) bool {
	if err := os.MkdirAll(l.BasePath, 0o750); err != nil {
		return false
	}
	return true
}
