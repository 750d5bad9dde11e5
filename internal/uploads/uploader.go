package uploads

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/AbrahamRP97/neighnet-go/internal/api"
	"github.com/AbrahamRP97/neighnet-go/internal/logging"
)

// Uploader implements the signed-URL-then-PUT flow: ask the uploads service
// for a pre-signed URL, then PUT the raw bytes at it. The PUT carries no
// bearer header; authorization is embedded in the signed URL itself.
type Uploader struct {
	client *api.Client
	http   *http.Client
	base   string
}

// NewUploader constructs an Uploader against the uploads base URL. A nil
// httpClient falls back to http.DefaultClient for the raw PUTs.
func NewUploader(client *api.Client, httpClient *http.Client, base string) *Uploader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Uploader{client: client, http: httpClient, base: base}
}

type signedURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type signedURLResponse struct {
	SignedURL string `json:"signedUrl"`
	PublicURL string `json:"publicUrl"`
}

// Upload pushes a single local file and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var signed signedURLResponse
	err = u.client.Post(ctx, u.base+"/signed-url", signedURLRequest{
		FileName:    filepath.Base(path),
		ContentType: contentType,
	}, &signed)
	if err != nil {
		return "", fmt.Errorf("request signed url: %w", err)
	}
	if signed.SignedURL == "" || signed.PublicURL == "" {
		return "", fmt.Errorf("signed url response incomplete")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signed.SignedURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload %s: unexpected status %d", filepath.Base(path), resp.StatusCode)
	}

	logging.FromContext(ctx).Info("uploaded file", "file", filepath.Base(path), "url", signed.PublicURL)
	return signed.PublicURL, nil
}

// UploadAll pushes files one at a time, in order. Any single failure aborts
// the whole batch; already-uploaded objects are not cleaned up.
func (u *Uploader) UploadAll(ctx context.Context, paths []string) ([]string, error) {
	urls := make([]string, 0, len(paths))
	for _, path := range paths {
		url, err := u.Upload(ctx, path)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// UploadEvidencePair pushes the cédula and placa photos concurrently. Both
// must succeed or the attach operation is aborted.
func (u *Uploader) UploadEvidencePair(ctx context.Context, cedulaPath, placaPath string) (cedulaURL, placaURL string, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		url, err := u.Upload(gctx, cedulaPath)
		if err != nil {
			return fmt.Errorf("cedula: %w", err)
		}
		cedulaURL = url
		return nil
	})
	g.Go(func() error {
		url, err := u.Upload(gctx, placaPath)
		if err != nil {
			return fmt.Errorf("placa: %w", err)
		}
		placaURL = url
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return cedulaURL, placaURL, nil
}
