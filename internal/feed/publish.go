package feed

import (
	"context"
	"strings"

	"github.com/AbrahamRP97/neighnet-go/internal/logging"
)

type postRequest struct {
	Mensaje     string   `json:"mensaje"`
	ImagenURL   string   `json:"imagen_url,omitempty"`
	ImagenesURL []string `json:"imagenes_url,omitempty"`
}

// Publish validates the message, uploads every selected image sequentially,
// then creates the post. Any single upload failure aborts the whole publish:
// no partial post is ever created. The first uploaded URL is mirrored into
// the legacy single-image field for older clients.
func (f *Feed) Publish(ctx context.Context, message string, imagePaths []string) error {
	if err := ValidateMessage(message); err != nil {
		return err
	}
	if _, err := f.token(); err != nil {
		return err
	}

	urls, err := f.uploader.UploadAll(ctx, imagePaths)
	if err != nil {
		return err
	}

	req := postRequest{Mensaje: message, ImagenesURL: urls}
	if len(urls) > 0 {
		req.ImagenURL = urls[0]
	}

	if err := f.client.Post(ctx, f.eps.Posts+"/create", req, nil); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("post published", "images", len(urls))
	return nil
}

// Edit applies the same validation as Publish. The image set is partitioned
// into already-remote URLs, kept as-is in their original order, and local
// paths, which are re-uploaded and appended. A failed upload aborts the edit
// with no partial update.
func (f *Feed) Edit(ctx context.Context, postID, message string, images []string) error {
	if err := ValidateMessage(message); err != nil {
		return err
	}
	if _, err := f.token(); err != nil {
		return err
	}

	var kept, local []string
	for _, img := range images {
		if isRemoteURL(img) {
			kept = append(kept, img)
		} else {
			local = append(local, img)
		}
	}

	uploaded, err := f.uploader.UploadAll(ctx, local)
	if err != nil {
		return err
	}

	final := append(kept, uploaded...)
	req := postRequest{Mensaje: message, ImagenesURL: final}
	if len(final) > 0 {
		req.ImagenURL = final[0]
	}

	return f.client.Put(ctx, f.eps.Posts+"/"+postID, req, nil)
}

// Delete removes a post and, only when the server confirms the delete,
// reloads the first page to resync the list. A failed delete surfaces its
// error without reloading.
func (f *Feed) Delete(ctx context.Context, postID string) error {
	if _, err := f.token(); err != nil {
		return err
	}

	if err := f.client.Delete(ctx, f.eps.Posts+"/"+postID); err != nil {
		return err
	}

	_, err := f.LoadFirstPage(ctx)
	return err
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
