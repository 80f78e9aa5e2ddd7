package artifact

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leofalp/aitasks/internal/utils"
)

// Download fetches a generated asset, usually an image URL returned by a
// provider, and returns its bytes and content type. A nil client means
// http.DefaultClient.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if utils.IsBlank(url) {
		return nil, "", fmt.Errorf("download URL must not be empty")
	}
	res, body, err := utils.DoGet(ctx, client, url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

// Save downloads url and stores it in sink under name.
func Save(ctx context.Context, client *http.Client, sink Sink, url, name string) (string, error) {
	data, contentType, err := Download(ctx, client, url)
	if err != nil {
		return "", err
	}
	return sink.Put(ctx, name, data, contentType)
}
