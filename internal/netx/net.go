// Package netx holds small HTTP helpers used by the uploader client.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// UploadToPresignedURL PUTs body to a presigned object-store URL.
//
// headers must contain every header that was signed into the URL
// (Content-Type, x-amz-server-side-encryption, ...), otherwise the
// object store rejects the signature. size is sent as Content-Length
// when it is non-negative.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url string, headers http.Header, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if size >= 0 {
		req.ContentLength = size
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
