package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"
)

// maxBodySize limits pages fetched from untrusted URLs.
const maxBodySize = 10 * 1024 * 1024

var fetchClient = &http.Client{Timeout: 30 * time.Second}

// fetchURL downloads a page and names it so the upload decoder recognizes
// HTML by extension.
func fetchURL(ctx context.Context, rawURL string) (name string, body []byte, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	// Some news sites reject requests without browser headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,zh;q=0.9,en;q=0.8")

	resp, err := fetchClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > maxBodySize {
		return "", nil, fmt.Errorf("fetch %s: content-length %d exceeds limit of %d bytes", rawURL, resp.ContentLength, maxBodySize)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if len(body) > maxBodySize {
		return "", nil, fmt.Errorf("fetch %s: body exceeds limit of %d bytes", rawURL, maxBodySize)
	}

	name = path.Base(u.Path)
	if name == "." || name == "/" {
		name = u.Host
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "text/html" && path.Ext(name) != ".html" {
		name += ".html"
	}
	return name, body, nil
}
