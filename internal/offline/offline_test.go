package offline_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/carpintaria/internal/offline"
	"github.com/aretw0/carpintaria/pkg/adapters/memory"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// site is a fake origin whose pages can be edited and which can go offline.
type site struct {
	mu    sync.Mutex
	pages map[string]string
	down  atomic.Bool
	srv   *httptest.Server
	base  *url.URL
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{pages: map[string]string{
		"/":                     "<h1>home</h1>",
		"/static/css/style.css": "body{}",
		"/static/Entrada.html":  "<h1>entrada</h1>",
	}}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/partial" {
			w.WriteHeader(http.StatusPartialContent)
			_, _ = io.WriteString(w, "part")
			return
		}
		s.mu.Lock()
		body, ok := s.pages[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.srv.Close)

	u, err := url.Parse(s.srv.URL)
	require.NoError(t, err)
	s.base = u
	return s
}

func (s *site) set(path, body string) {
	s.mu.Lock()
	s.pages[path] = body
	s.mu.Unlock()
}

func (s *site) url(path string) string {
	return s.srv.URL + path
}

// RoundTrip fails every request while the site is down.
func (s *site) RoundTrip(req *http.Request) (*http.Response, error) {
	if s.down.Load() {
		return nil, errors.New("network unreachable")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func manifest(version string, entries ...string) domain.Manifest {
	return domain.Manifest{Version: version, Entries: entries, Fallback: "/static/Entrada.html"}
}

func newController(s *site, store *memory.CacheStore, m domain.Manifest, opts ...offline.Option) *offline.Controller {
	opts = append([]offline.Option{offline.WithTransport(s), offline.WithBaseURL(s.base)}, opts...)
	return offline.New(store, m, opts...)
}

func get(t *testing.T, rt http.RoundTripper, rawURL, accept string) (*http.Response, string, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body), nil
}

func TestContainer_Versioning(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	container := offline.NewContainer(s, nil)
	ctx := context.Background()

	_, err := container.Register(ctx, newController(s, store, manifest("v1", "/", "/static/css/style.css")))
	require.NoError(t, err)

	v2 := newController(s, store, manifest("v2", "/", "/static/Entrada.html"))
	report, err := container.Register(ctx, v2)
	require.NoError(t, err)
	assert.Len(t, report.Stored, 2)

	gens, err := store.Generations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, gens)

	keys, err := store.Keys(ctx, "v2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{s.url("/"), s.url("/static/Entrada.html")}, keys)

	assert.Same(t, v2, container.Active())
	assert.Equal(t, domain.ControllerActive, v2.State())
}

func TestController_NetworkFirst(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	container := offline.NewContainer(s, nil)
	ctx := context.Background()

	_, err := container.Register(ctx, newController(s, store, manifest("v1", "/static/css/style.css")))
	require.NoError(t, err)

	s.set("/static/css/style.css", "body{color:red}")

	resp, body, err := get(t, container, s.url("/static/css/style.css"), "text/css")
	require.NoError(t, err)
	assert.Equal(t, "body{color:red}", body)
	assert.Empty(t, resp.Header.Get(offline.CacheHeader))

	container.Flush()
	entry, err := store.Get(ctx, "v1", s.url("/static/css/style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{color:red}", string(entry.Body), "live response is written through")
}

func TestController_OfflineFallback(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	container := offline.NewContainer(s, nil)

	_, err := container.Register(context.Background(), newController(s, store,
		manifest("v1", "/static/css/style.css", "/static/Entrada.html")))
	require.NoError(t, err)

	s.down.Store(true)

	t.Run("cached entry", func(t *testing.T) {
		resp, body, err := get(t, container, s.url("/static/css/style.css#top"), "text/css")
		require.NoError(t, err)
		assert.Equal(t, "body{}", body)
		assert.Equal(t, "hit", resp.Header.Get(offline.CacheHeader))
	})

	t.Run("html navigation", func(t *testing.T) {
		resp, body, err := get(t, container, s.url("/office"), "text/html,application/xhtml+xml")
		require.NoError(t, err)
		assert.Equal(t, "<h1>entrada</h1>", body)
		assert.Equal(t, "fallback", resp.Header.Get(offline.CacheHeader))
	})

	t.Run("other requests fail", func(t *testing.T) {
		_, _, err := get(t, container, s.url("/static/app.js"), "*/*")
		assert.ErrorContains(t, err, "network unreachable")
	})
}

func TestController_NonGetPassthrough(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	container := offline.NewContainer(s, nil)
	ctx := context.Background()

	_, err := container.Register(ctx, newController(s, store, manifest("v1", "/")))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.url("/"), strings.NewReader("x=1"))
	require.NoError(t, err)
	resp, err := container.RoundTrip(req)
	require.NoError(t, err)
	_, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	container.Flush()

	s.set("/", "changed")
	s.down.Store(true)

	// The cached copy is still the precached one: the POST was never stored.
	entry, err := store.Get(ctx, "v1", s.url("/"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>home</h1>", string(entry.Body))

	_, err = container.RoundTrip(mustRequest(t, http.MethodPost, s.url("/")))
	assert.Error(t, err, "non-GET requests never fall back to the cache")
}

func TestController_PartialNotStored(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	container := offline.NewContainer(s, nil)
	ctx := context.Background()

	_, err := container.Register(ctx, newController(s, store, manifest("v1", "/")))
	require.NoError(t, err)

	resp, body, err := get(t, container, s.url("/partial"), "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "part", body)
	container.Flush()

	_, err = store.Get(ctx, "v1", s.url("/partial"))
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestContainer_InstallFailureKeepsPrevious(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	container := offline.NewContainer(s, nil)
	ctx := context.Background()

	v1 := newController(s, store, manifest("v1", "/"))
	_, err := container.Register(ctx, v1)
	require.NoError(t, err)

	v2 := newController(s, store, manifest("v2", "/", "/missing.css"))
	report, err := container.Register(ctx, v2)
	require.ErrorIs(t, err, domain.ErrInstallFailed)
	require.NotEmpty(t, report.Failed)

	assert.Same(t, v1, container.Active())
	assert.Equal(t, domain.ControllerTerminated, v2.State())

	gens, err := store.Generations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, gens, "nothing is written for a failed install")
}

func TestController_BestEffortInstall(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	ctx := context.Background()

	ctrl := newController(s, store, manifest("v1", "/", "/missing.css"), offline.WithPolicy(offline.PolicyBestEffort))
	report, err := ctrl.Install(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{s.url("/")}, report.Stored)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, s.url("/missing.css"), report.Failed[0].URL)
	assert.Equal(t, domain.ControllerInstalled, ctrl.State())
}

func TestContainer_NoControllerPassesThrough(t *testing.T) {
	s := newSite(t)
	container := offline.NewContainer(s, nil)

	_, body, err := get(t, container, s.url("/"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>home</h1>", body)
}

func TestController_Hooks(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	var mu sync.Mutex
	var outcomes []string

	hooks := domain.CacheHooks{
		OnIntercept: func(_ context.Context, ev *domain.InterceptEvent) {
			mu.Lock()
			outcomes = append(outcomes, ev.Outcome)
			mu.Unlock()
		},
	}
	container := offline.NewContainer(s, nil)
	_, err := container.Register(context.Background(),
		newController(s, store, manifest("v1", "/static/Entrada.html"), offline.WithHooks(hooks)))
	require.NoError(t, err)

	_, _, err = get(t, container, s.url("/"), "text/html")
	require.NoError(t, err)
	container.Flush()
	s.down.Store(true)
	_, _, _ = get(t, container, s.url("/"), "text/html")
	_, _, _ = get(t, container, s.url("/office"), "text/html")
	_, _, _ = get(t, container, s.url("/x.js"), "")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		domain.OutcomeNetwork,
		domain.OutcomeCacheHit,
		domain.OutcomeFallback,
		domain.OutcomeMiss,
	}, outcomes)
}

func TestProxy_ServesFallbackWhenOriginDown(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	container := offline.NewContainer(s, nil)
	_, err := container.Register(context.Background(), newController(s, store, manifest("v1", "/static/Entrada.html")))
	require.NoError(t, err)

	front := httptest.NewServer(offline.NewProxy(s.base, container, nil))
	defer front.Close()

	s.down.Store(true)

	req, err := http.NewRequest(http.MethodGet, front.URL+"/store", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<h1>entrada</h1>", string(body))

	resp2, err := http.Post(front.URL+"/api/form", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp2.StatusCode)
}

func TestContainer_SupersededControllerStopsWriting(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	container := offline.NewContainer(s, nil)
	ctx := context.Background()

	v1 := newController(s, store, manifest("v1", "/"))
	_, err := container.Register(ctx, v1)
	require.NoError(t, err)

	// The body is still unread when v2 takes over.
	resp, err := container.RoundTrip(mustRequest(t, http.MethodGet, s.url("/static/css/style.css")))
	require.NoError(t, err)
	defer resp.Body.Close()

	_, err = container.Register(ctx, newController(s, store, manifest("v2", "/")))
	require.NoError(t, err)
	assert.Equal(t, domain.ControllerTerminated, v1.State())

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(body))
	v1.Flush()

	gens, err := store.Generations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, gens, "an evicted generation is never recreated")
}

var errStore = errors.New("store unavailable")

// faultyStore fails Put or Get on demand.
type faultyStore struct {
	*memory.CacheStore
	failPut atomic.Bool
	failGet atomic.Bool
}

func (f *faultyStore) Put(ctx context.Context, generation string, entry *domain.CacheEntry) error {
	if f.failPut.Load() {
		return errStore
	}
	return f.CacheStore.Put(ctx, generation, entry)
}

func (f *faultyStore) Get(ctx context.Context, generation, key string) (*domain.CacheEntry, error) {
	if f.failGet.Load() {
		return nil, errStore
	}
	return f.CacheStore.Get(ctx, generation, key)
}

func TestController_WriteFailureKeepsLiveResponse(t *testing.T) {
	s := newSite(t)
	store := &faultyStore{CacheStore: memory.NewCacheStore()}
	var writeErrs atomic.Int32
	hooks := domain.CacheHooks{
		OnWriteError: func(_ context.Context, ev *domain.InterceptEvent, err error) {
			assert.ErrorIs(t, err, errStore)
			assert.Equal(t, s.url("/"), ev.URL)
			writeErrs.Add(1)
		},
	}
	container := offline.NewContainer(s, nil)
	ctx := context.Background()
	_, err := container.Register(ctx, offline.New(store, manifest("v1", "/"),
		offline.WithTransport(s), offline.WithBaseURL(s.base), offline.WithHooks(hooks)))
	require.NoError(t, err)

	store.failPut.Store(true)
	s.set("/", "<h1>fresh</h1>")

	resp, body, err := get(t, container, s.url("/"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<h1>fresh</h1>", body)
	container.Flush()

	assert.Equal(t, int32(1), writeErrs.Load())
	entry, err := store.CacheStore.Get(ctx, "v1", s.url("/"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>home</h1>", string(entry.Body))
}

func TestController_ReadFailureFallsThroughToNetworkError(t *testing.T) {
	s := newSite(t)
	store := &faultyStore{CacheStore: memory.NewCacheStore()}
	var mu sync.Mutex
	var outcomes []string
	hooks := domain.CacheHooks{
		OnIntercept: func(_ context.Context, ev *domain.InterceptEvent) {
			mu.Lock()
			outcomes = append(outcomes, ev.Outcome)
			mu.Unlock()
		},
	}
	container := offline.NewContainer(s, nil)
	_, err := container.Register(context.Background(), offline.New(store, manifest("v1", "/", "/static/Entrada.html"),
		offline.WithTransport(s), offline.WithBaseURL(s.base), offline.WithHooks(hooks)))
	require.NoError(t, err)

	store.failGet.Store(true)
	s.down.Store(true)

	_, _, err = get(t, container, s.url("/"), "text/html")
	assert.ErrorContains(t, err, "network unreachable")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{domain.OutcomeMiss}, outcomes)
}

func TestContainer_ResumeExistingGeneration(t *testing.T) {
	s := newSite(t)
	store := memory.NewCacheStore()
	ctx := context.Background()

	_, err := offline.LatestGeneration(ctx, store)
	assert.ErrorIs(t, err, domain.ErrNoGeneration)

	_, err = offline.NewContainer(s, nil).Register(ctx, newController(s, store, manifest("v1", "/", "/static/Entrada.html")))
	require.NoError(t, err)

	gen, err := offline.LatestGeneration(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "v1", gen)

	container := offline.NewContainer(s, nil)
	err = container.Resume(ctx, newController(s, store, manifest("v9")))
	assert.ErrorIs(t, err, domain.ErrNoGeneration)
	assert.Nil(t, container.Active())

	ctrl := newController(s, store, manifest(gen))
	require.NoError(t, container.Resume(ctx, ctrl))
	assert.Equal(t, domain.ControllerActive, ctrl.State())

	s.down.Store(true)
	resp, body, err := get(t, container, s.url("/"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "hit", resp.Header.Get(offline.CacheHeader))
	assert.Equal(t, "<h1>home</h1>", body)
}

func TestLatestGeneration_NewestStoredWins(t *testing.T) {
	store := memory.NewCacheStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Put(ctx, "b-old", &domain.CacheEntry{Key: "k", Status: 200, StoredAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Put(ctx, "a-new", &domain.CacheEntry{Key: "k", Status: 200, StoredAt: now}))

	gen, err := offline.LatestGeneration(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "a-new", gen)
}

func TestParsePolicy(t *testing.T) {
	p, err := offline.ParsePolicy("best-effort")
	require.NoError(t, err)
	assert.Equal(t, offline.PolicyBestEffort, p)

	p, err = offline.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, offline.PolicyAllOrNothing, p)

	_, err = offline.ParsePolicy("sometimes")
	assert.Error(t, err)
}

func mustRequest(t *testing.T, method, rawURL string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, rawURL, nil)
	require.NoError(t, err)
	return req
}
