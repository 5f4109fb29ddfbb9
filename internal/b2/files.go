package b2

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/imgvault/imgvault/internal/errdefs"
)

// DeleteFile removes every stored version of fileName. An absent file is
// ErrNotFound before any listing call is made. Deletion is not
// transactional across versions: a failing delete aborts the operation
// and already deleted versions stay deleted.
func (c *Client) DeleteFile(ctx context.Context, fileName string) error {
	exists, err := c.FileExists(ctx, fileName)
	if err != nil {
		return err
	}
	if !exists {
		return errdefs.Newf(errdefs.ErrNotFound, "file %q does not exist", fileName)
	}

	var doomed []FileVersion
	pager := c.versions(fileName)
	for {
		page, more, err := pager.next(ctx)
		if err != nil {
			return fmt.Errorf("unable to list file versions: %w", err)
		}
		if !more {
			break
		}
		for _, f := range page.Files {
			// The listing is ordered by name; the first mismatch means
			// it has moved past the target.
			if f.FileName != fileName {
				pager.stop()
				break
			}
			doomed = append(doomed, f)
		}
		// Keep paging only while the next page still starts at the
		// target name.
		if page.NextFileName == nil || *page.NextFileName != fileName {
			pager.stop()
		}
	}

	for _, f := range doomed {
		if err := c.deleteVersion(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// EmptyBucket deletes every file version in the bucket, page by page,
// until the listing cursor is exhausted. The loop is bounded only by the
// service's reported end of listing.
func (c *Client) EmptyBucket(ctx context.Context) error {
	pager := c.versions("")
	for {
		page, more, err := pager.next(ctx)
		if err != nil {
			return fmt.Errorf("unable to list file versions: %w", err)
		}
		if !more {
			return nil
		}
		for _, f := range page.Files {
			if err := c.deleteVersion(ctx, f); err != nil {
				return err
			}
		}
	}
}

func (c *Client) deleteVersion(ctx context.Context, v FileVersion) error {
	payload := map[string]string{"fileId": v.FileID, "fileName": v.FileName}
	if err := c.apiPost(ctx, "b2_delete_file_version", payload, nil); err != nil {
		return fmt.Errorf("delete file version %s: %w", v.FileID, err)
	}
	return nil
}

// FileExists probes the public download URL with a HEAD request. A 404 is
// a clean false, never an error.
func (c *Client) FileExists(ctx context.Context, fileName string) (bool, error) {
	resp, err := c.download(ctx, http.MethodHead, fileName)
	if err != nil {
		return false, errdefs.NewE(errdefs.ErrUnavailable, fmt.Errorf("check %q: %w", fileName, err))
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, errdefs.Newf(errdefs.ErrUnavailable, "check %q: unexpected status %s", fileName, resp.Status)
	}
}

// GetFile fetches the stored body verbatim.
func (c *Client) GetFile(ctx context.Context, fileName string) ([]byte, error) {
	resp, err := c.download(ctx, http.MethodGet, fileName)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, fmt.Errorf("get %q: %w", fileName, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errdefs.Newf(errdefs.ErrNotFound, "file %q does not exist", fileName)
	}
	if err := responseError(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, fmt.Errorf("get %q: %w", fileName, err))
	}
	return data, nil
}

// GetFileInfo returns the download response headers as a flat map,
// multi-valued headers comma-joined.
func (c *Client) GetFileInfo(ctx context.Context, fileName string) (map[string]string, error) {
	resp, err := c.download(ctx, http.MethodHead, fileName)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, fmt.Errorf("stat %q: %w", fileName, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errdefs.Newf(errdefs.ErrNotFound, "file %q does not exist", fileName)
	}
	if err := responseError(resp); err != nil {
		return nil, err
	}
	info := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		info[name] = strings.Join(values, ", ")
	}
	return info, nil
}

// Status is a best-effort health probe: it lists at most one file name in
// the bucket and reports false on any failure rather than an error.
func (c *Client) Status(ctx context.Context) bool {
	query := url.Values{}
	query.Set("bucketId", c.creds.BucketID)
	query.Set("maxFileCount", "1")
	if err := c.apiGet(ctx, "b2_list_file_names", query, nil); err != nil {
		c.log.Warn().Err(err).Msg("storage health probe failed")
		return false
	}
	return true
}

func (c *Client) download(ctx context.Context, method, fileName string) (*http.Response, error) {
	u := c.downloadURL + "/file/" + url.PathEscape(c.creds.BucketName) + "/" + escapeName(fileName)
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	return c.httpc.Do(req)
}
