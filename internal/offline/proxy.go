package offline

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// NewProxy returns a reverse proxy to origin whose upstream traffic goes
// through rt, so a Container in rt keeps pages available while origin is down.
func NewProxy(origin *url.URL, rt http.RoundTripper, logger *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(origin)
			pr.SetXForwarded()
		},
		Transport: rt,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) {
				return
			}
			if logger != nil {
				logger.Warn("upstream unavailable", "path", r.URL.Path, "error", err)
			}
			http.Error(w, "Service unavailable while offline", http.StatusBadGateway)
		},
	}
}
