package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/imgvault/imgvault/internal/config"
	"github.com/imgvault/imgvault/internal/errdefs"
)

// S3 stores images in any S3-compatible service through the minio client.
type S3 struct {
	client *minio.Client
	bucket string
}

func NewS3(cfg config.S3Store) (*S3, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSInsecureSkip {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
		BucketLookup: func() minio.BucketLookupType {
			if cfg.ForcePathStyle {
				return minio.BucketLookupPath
			}
			return minio.BucketLookupDNS
		}(),
	})
	if err != nil {
		return nil, err
	}
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3) Store(ctx context.Context, user, id string, data []byte) error {
	key, err := ObjectPath(user, id)
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: http.DetectContentType(data)}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	return errdefs.NewE(errdefs.ErrUnavailable, err)
}

func (s *S3) Delete(ctx context.Context, user, id string) error {
	key, err := ObjectPath(user, id)
	if err != nil {
		return err
	}
	exists, err := s.Exists(ctx, user, id)
	if err != nil {
		return err
	}
	if !exists {
		return errdefs.Newf(errdefs.ErrNotFound, "image %s does not exist", key)
	}
	return errdefs.NewE(errdefs.ErrUnavailable, s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}))
}

func (s *S3) GetImage(ctx context.Context, user, id string) ([]byte, error) {
	key, err := ObjectPath(user, id)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errdefs.Newf(errdefs.ErrNotFound, "image %s does not exist", key)
		}
		return nil, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return data, nil
}

func (s *S3) LastModified(ctx context.Context, user, id string) (time.Time, error) {
	key, err := ObjectPath(user, id)
	if err != nil {
		return time.Time{}, err
	}
	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return time.Time{}, errdefs.Newf(errdefs.ErrNotFound, "image %s does not exist", key)
		}
		return time.Time{}, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return stat.LastModified, nil
}

func (s *S3) Exists(ctx context.Context, user, id string) (bool, error) {
	key, err := ObjectPath(user, id)
	if err != nil {
		return false, err
	}
	_, err = s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return true, nil
}

func (s *S3) Status(ctx context.Context) bool {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	return err == nil && ok
}
