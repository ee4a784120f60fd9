package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
)

// CacheHeader marks responses served from the cache: "hit" or "fallback".
const CacheHeader = "X-Carpintaria-Cache"

// RoundTrip implements http.RoundTripper with a network-first strategy.
func (c *Controller) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if req.Method != http.MethodGet {
		c.emit(ctx, req, domain.OutcomePassthrough)
		return c.transport.RoundTrip(req)
	}

	resp, err := c.transport.RoundTrip(req)
	if err == nil {
		if c.State() == domain.ControllerActive && storable(resp) {
			c.writeThrough(req, resp)
		}
		c.emit(ctx, req, domain.OutcomeNetwork)
		return resp, nil
	}

	// The caller gave up; there is nobody to serve a fallback to.
	if ctx.Err() != nil {
		return nil, err
	}

	key := cacheKey(req.URL)
	if entry, gerr := c.store.Get(ctx, c.manifest.Version, key); gerr == nil {
		c.logger.Debug("serving from cache", "url", key, "error", err)
		c.emit(ctx, req, domain.OutcomeCacheHit)
		return entryResponse(req, entry, "hit"), nil
	} else if !errors.Is(gerr, domain.ErrEntryNotFound) {
		c.logger.Warn("cache lookup failed", "url", key, "error", gerr)
	}

	if acceptsHTML(req) {
		if fb, ferr := c.resolve(c.manifest.Fallback); ferr == nil {
			if entry, gerr := c.store.Get(ctx, c.manifest.Version, fb); gerr == nil {
				c.emit(ctx, req, domain.OutcomeFallback)
				return entryResponse(req, entry, "fallback"), nil
			}
		}
	}

	c.emit(ctx, req, domain.OutcomeMiss)
	return nil, err
}

// writeThrough swaps the response body for one that copies what the caller
// reads and stores the copy once the body has been read to EOF.
// Store failures are logged and reported to hooks, never to the caller.
func (c *Controller) writeThrough(req *http.Request, resp *http.Response) {
	entry := &domain.CacheEntry{
		Key:    cacheKey(req.URL),
		Status: resp.StatusCode,
		Header: storableHeader(resp.Header),
	}
	ctx := context.WithoutCancel(req.Context())
	event := c.event(req, domain.OutcomeNetwork)

	resp.Body = &teeBody{
		rc:    resp.Body,
		limit: c.maxEntrySize,
		onEOF: func(body []byte) {
			entry.Body = body
			entry.StoredAt = time.Now()

			c.writes.Add(1)
			go func() {
				defer c.writes.Done()
				if err := c.put(ctx, entry); err != nil {
					c.logger.Warn("cache write failed", "url", entry.Key, "error", err)
					if c.hooks.OnWriteError != nil {
						c.hooks.OnWriteError(ctx, event, err)
					}
				}
			}()
		},
	}
}

// put stores a write-through entry only while the controller is active.
// It holds the state lock for the duration of the write, so Terminate
// returns only after in-flight writes have landed.
func (c *Controller) put(ctx context.Context, entry *domain.CacheEntry) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != domain.ControllerActive {
		c.logger.Debug("dropping write from inactive controller", "generation", c.manifest.Version, "url", entry.Key)
		return nil
	}
	return c.store.Put(ctx, c.manifest.Version, entry)
}

func (c *Controller) emit(ctx context.Context, req *http.Request, outcome string) {
	if c.hooks.OnIntercept == nil {
		return
	}
	c.hooks.OnIntercept(ctx, c.event(req, outcome))
}

func (c *Controller) event(req *http.Request, outcome string) *domain.InterceptEvent {
	return &domain.InterceptEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventIntercept},
		Generation: c.manifest.Version,
		Method:     req.Method,
		URL:        cacheKey(req.URL),
		Outcome:    outcome,
	}
}

// teeBody buffers everything read through it and calls onEOF once with the
// complete body. Bodies that grow past limit are not reported.
type teeBody struct {
	rc       io.ReadCloser
	buf      bytes.Buffer
	limit    int64
	overflow bool
	done     bool
	onEOF    func([]byte)
}

func (t *teeBody) Read(p []byte) (int, error) {
	n, err := t.rc.Read(p)
	if n > 0 && !t.overflow {
		if int64(t.buf.Len()+n) > t.limit {
			t.overflow = true
			t.buf = bytes.Buffer{}
		} else {
			t.buf.Write(p[:n])
		}
	}
	if errors.Is(err, io.EOF) && !t.done {
		t.done = true
		if !t.overflow {
			t.onEOF(t.buf.Bytes())
		}
	}
	return n, err
}

func (t *teeBody) Close() error {
	return t.rc.Close()
}

func storable(resp *http.Response) bool {
	if resp.StatusCode == http.StatusPartialContent {
		return false
	}
	return resp.Header.Get("Vary") != "*"
}

// storableHeader drops headers that must not be replayed from a cache.
func storableHeader(h http.Header) http.Header {
	out := h.Clone()
	for _, k := range []string{"Set-Cookie", "Connection", "Keep-Alive", "Transfer-Encoding"} {
		out.Del(k)
	}
	return out
}

func acceptsHTML(req *http.Request) bool {
	for _, v := range req.Header.Values("Accept") {
		if strings.Contains(v, "text/html") {
			return true
		}
	}
	return false
}

func entryResponse(req *http.Request, entry *domain.CacheEntry, source string) *http.Response {
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(CacheHeader, source)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.Status, http.StatusText(entry.Status)),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}
