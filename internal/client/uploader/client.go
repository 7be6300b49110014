// Package uploader is the HTTP client for the file intake API: it requests
// an upload credential, uploads the file straight to object storage and
// follows the file's scan status.
package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/netx"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
)

// Credential mirrors the upload-url response.
type Credential struct {
	URL         string            `json:"url"`
	FileID      string            `json:"fileId"`
	Filename    string            `json:"filename"`
	S3Key       string            `json:"s3Key"`
	Bucket      string            `json:"bucket"`
	ContentType string            `json:"contentType"`
	ExpiresIn   int64             `json:"expiresIn"`
	Headers     map[string]string `json:"headers"`
}

// APIError is a non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: body.Error}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", common.ErrorNotFound, apiErr)
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RequestUpload asks the API for a presigned upload URL.
func (c *Client) RequestUpload(ctx context.Context, filename, contentType string, size int64) (*Credential, error) {
	q := url.Values{}
	q.Set("filename", filename)
	if contentType != "" {
		q.Set("content_type", contentType)
	}
	if size > 0 {
		q.Set("size", strconv.FormatInt(size, 10))
	}

	var cred Credential
	if err := c.getJSON(ctx, "/api/v1/upload-url?"+q.Encode(), &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Upload PUTs body to the credential URL with the signed headers.
func (c *Client) Upload(ctx context.Context, cred *Credential, body io.Reader, size int64) error {
	headers := http.Header{}
	for k, v := range cred.Headers {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		headers.Set(k, v)
	}
	if headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", cred.ContentType)
	}
	return netx.UploadToPresignedURL(ctx, c.http, cred.URL, headers, body, size)
}

// GetFile returns the stored record for fileID.
func (c *Client) GetFile(ctx context.Context, fileID string) (*models.FileRecord, error) {
	var rec models.FileRecord
	if err := c.getJSON(ctx, "/api/v1/files/"+url.PathEscape(fileID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// WaitForFile polls the API until fileID reaches a terminal status or ctx
// ends. The record may not exist yet right after upload, so not-found
// responses are retried.
func (c *Client) WaitForFile(ctx context.Context, fileID string, interval time.Duration) (*models.FileRecord, error) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		rec, err := c.GetFile(ctx, fileID)
		switch {
		case err == nil && rec.UploadedStatus.IsTerminal():
			return rec, nil
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// PutFile requests a credential for the local file at path and uploads it.
func (c *Client) PutFile(ctx context.Context, path, contentType string) (*Credential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	cred, err := c.RequestUpload(ctx, filepath.Base(path), contentType, info.Size())
	if err != nil {
		return nil, err
	}

	if err := c.Upload(ctx, cred, f, info.Size()); err != nil {
		return nil, err
	}
	return cred, nil
}
