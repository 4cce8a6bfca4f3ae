package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type HTTPOptions struct {
	BaseURL    string
	Root       string
	AuthToken  string
	Timeout    time.Duration
	MaxRetries int
	Client     *http.Client
}

// HTTPBackend talks to a Firebase-style realtime database over REST:
// GET/PUT/DELETE on <base>/<root>/<path>.json.
type HTTPBackend struct {
	base       string
	root       []string
	auth       string
	timeout    time.Duration
	maxRetries int
	client     *http.Client
}

func NewHTTPBackend(opts HTTPOptions) (*HTTPBackend, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("store: http driver needs base_url")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("store: bad base_url: %w", err)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &HTTPBackend{
		base:       base,
		root:       splitPath(opts.Root),
		auth:       opts.AuthToken,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		client:     opts.Client,
	}, nil
}

func (b *HTTPBackend) url(path string) string {
	segs := append(append([]string(nil), b.root...), splitPath(path)...)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	u := b.base + "/" + joinPath(segs...) + ".json"
	if b.auth != "" {
		u += "?auth=" + url.QueryEscape(b.auth)
	}
	return u
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body []byte, hdr map[string]string) ([]byte, http.Header, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.url(path), rd)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	res, err := b.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	out, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return out, res.Header, &StatusError{Method: method, Path: path, Code: res.StatusCode, Body: string(out)}
	}
	return out, res.Header, nil
}

func isNullBody(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

func (b *HTTPBackend) Read(ctx context.Context, path string) ([]byte, error) {
	out, _, err := b.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if isNullBody(out) {
		return nil, nil
	}
	return out, nil
}

func (b *HTTPBackend) Write(ctx context.Context, path string, body []byte) error {
	if isNullBody(body) {
		return b.Remove(ctx, path)
	}
	_, _, err := b.do(ctx, http.MethodPut, path, body, nil)
	return err
}

func (b *HTTPBackend) Remove(ctx context.Context, path string) error {
	_, _, err := b.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// Update uses the store's ETag preconditions: read with X-Firebase-ETag, then
// write with if-match, retrying on 412.
func (b *HTTPBackend) Update(ctx context.Context, path string, fn UpdateFunc) error {
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		cur, hdr, err := b.do(ctx, http.MethodGet, path, nil, map[string]string{"X-Firebase-ETag": "true"})
		if err != nil {
			return err
		}
		etag := hdr.Get("ETag")
		if isNullBody(cur) {
			cur = nil
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}

		cond := map[string]string{"if-match": etag}
		if isNullBody(next) {
			_, _, err = b.do(ctx, http.MethodDelete, path, nil, cond)
		} else {
			_, _, err = b.do(ctx, http.MethodPut, path, next, cond)
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusPreconditionFailed {
			continue
		}
		return err
	}
	return ErrConflict
}

func (b *HTTPBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
