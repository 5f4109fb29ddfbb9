package b2

import (
	"context"
	"net/url"
)

// FileVersion is one stored revision of an object as reported by the
// version listing.
type FileVersion struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

type listVersionsResponse struct {
	Files []FileVersion `json:"files"`
	// A (null, null) cursor pair signals the end of the listing.
	NextFileName *string `json:"nextFileName"`
	NextFileID   *string `json:"nextFileId"`
}

// versionPager walks b2_list_file_versions pages lazily. It is finite and
// not restartable: once the service reports an exhausted cursor, or a
// listing call fails, next never issues another request.
type versionPager struct {
	client        *Client
	startFileName string
	startFileID   string
	done          bool
}

func (c *Client) versions(startFileName string) *versionPager {
	return &versionPager{client: c, startFileName: startFileName}
}

// next fetches the following page. more is false once the listing is
// exhausted; no request is made in that case.
func (p *versionPager) next(ctx context.Context) (page listVersionsResponse, more bool, err error) {
	if p.done {
		return listVersionsResponse{}, false, nil
	}

	query := url.Values{}
	query.Set("bucketId", p.client.creds.BucketID)
	if p.startFileName != "" {
		query.Set("startFileName", p.startFileName)
	}
	if p.startFileID != "" {
		query.Set("startFileId", p.startFileID)
	}
	if err := p.client.apiGet(ctx, "b2_list_file_versions", query, &page); err != nil {
		p.done = true
		return listVersionsResponse{}, false, err
	}

	if page.NextFileName == nil && page.NextFileID == nil {
		p.done = true
	} else {
		p.startFileName = stringValue(page.NextFileName)
		p.startFileID = stringValue(page.NextFileID)
	}
	return page, true, nil
}

// stop marks the pager exhausted without a further request.
func (p *versionPager) stop() {
	p.done = true
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
