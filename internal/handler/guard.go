package handler

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/truonghoc/studio/internal/model"
)

const clientIDHeader = "X-Client-ID"

// inflight allows one running operation per client and capability.
type inflight struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{running: make(map[string]struct{})}
}

// acquire claims the slot for client and c. The returned release must be
// called exactly once when ok is true.
func (g *inflight) acquire(client string, c model.Capability) (release func(), ok bool) {
	key := client + "|" + string(c)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[key]; busy {
		return nil, false
	}
	g.running[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, key)
			g.mu.Unlock()
		})
	}, true
}

// clientIdentity stores the caller identity in the request context:
// the X-Client-ID header, or the remote host.
func clientIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(clientIDHeader))
		if id == "" {
			id = r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				id = host
			}
		}
		ctx := model.ContextWithClientID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claim acquires the in-flight slot for the request's client, writing a
// 409 when it is taken.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request, c model.Capability) (func(), bool) {
	release, ok := h.guard.acquire(model.ClientIDFromContext(r.Context()), c)
	if !ok {
		h.writeError(w, r, errBusy)
		return nil, false
	}
	return release, true
}
