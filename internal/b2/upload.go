package b2

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/imgvault/imgvault/internal/errdefs"
)

// uploadAttempts bounds the ticket+upload handshake. Upload URLs are
// single-use and may be rejected by individual storage nodes, so every
// attempt negotiates a fresh ticket.
const uploadAttempts = 5

type uploadTicket struct {
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

// Upload stores data under fileName. Each of the bounded attempts fetches
// a fresh upload ticket and POSTs the body to the returned upload URL;
// the first attempt where both steps succeed wins. Attempts retry
// immediately, without backoff.
func (c *Client) Upload(ctx context.Context, fileName string, data []byte) error {
	var lastErr error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		ticket, err := c.uploadTicket(ctx)
		if err != nil {
			lastErr = err
			c.log.Debug().Err(err).Int("attempt", attempt).Msg("upload ticket request failed")
			continue
		}
		if ticket.UploadURL == "" || ticket.AuthorizationToken == "" {
			// A malformed ticket is a failed attempt but carries no
			// transport cause worth reporting.
			c.log.Debug().Int("attempt", attempt).Msg("upload ticket missing url or token")
			continue
		}
		if err := c.uploadOnce(ctx, ticket, fileName, data); err != nil {
			lastErr = err
			c.log.Debug().Err(err).Int("attempt", attempt).Msg("upload attempt failed")
			continue
		}
		return nil
	}
	if lastErr != nil {
		return errdefs.NewE(errdefs.ErrUnavailable,
			fmt.Errorf("unable to upload %q after %d attempts: %w", fileName, uploadAttempts, lastErr))
	}
	return errdefs.Newf(errdefs.ErrUnavailable, "unable to upload %q after %d attempts", fileName, uploadAttempts)
}

func (c *Client) uploadTicket(ctx context.Context) (uploadTicket, error) {
	query := url.Values{}
	query.Set("bucketId", c.creds.BucketID)
	var ticket uploadTicket
	if err := c.apiGet(ctx, "b2_get_upload_url", query, &ticket); err != nil {
		return uploadTicket{}, err
	}
	return ticket, nil
}

func (c *Client) uploadOnce(ctx context.Context, ticket uploadTicket, fileName string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.UploadURL, bytes.NewReader(data))
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	sum := sha1.Sum(data)
	req.ContentLength = int64(len(data))
	req.Header.Set("Authorization", ticket.AuthorizationToken)
	req.Header.Set("Content-Type", "b2/x-auto")
	req.Header.Set("X-Bz-File-Name", escapeName(fileName))
	req.Header.Set("X-Bz-Content-Sha1", hex.EncodeToString(sum[:]))
	req.Header.Set("X-Bz-Info-src_last_modified_millis", strconv.FormatInt(time.Now().UnixMilli(), 10))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	return responseError(resp)
}
