package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/truonghoc/studio/internal/store"
)

const (
	sessionCookieName = "studio_admin"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
	adminSubject      = "admin"
)

type authMethodKey struct{}

// SetAdminPassword stores a bcrypt hash of password as the admin credential.
func SetAdminPassword(ctx context.Context, s *store.Store, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return s.SetAdminPasswordHash(ctx, string(hash))
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// checkPassword compares password with the stored admin hash. An unset hash
// disables admin access.
func (h *Handler) checkPassword(ctx context.Context, password string) bool {
	if h.store == nil || password == "" {
		return false
	}
	hash, err := h.store.AdminPasswordHash(ctx)
	if err != nil {
		slog.Error("failed to read admin password", "error", err)
		return false
	}
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// requireAdmin accepts a session cookie or HTTP basic credentials.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" && h.store != nil {
			sess, err := h.store.GetAuthSession(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to get auth session", "error", err)
			}
			if sess != nil {
				ctx := context.WithValue(r.Context(), authMethodKey{}, "session")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		if user, password, ok := r.BasicAuth(); ok && user == adminSubject && h.checkPassword(r.Context(), password) {
			ctx := context.WithValue(r.Context(), authMethodKey{}, "basic")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="studio admin"`)
		h.writeError(w, r, errUnauthorized)
	})
}

// csrfMiddleware checks the X-CSRF-Token header against the csrf cookie on
// unsafe requests authenticated by session cookie.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || adminSession(r.Context()) != "session" {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}
		token := r.Header.Get(csrfHeaderName)
		if token == "" {
			slog.Warn("CSRF header missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}
		if len(token) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch")
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var password string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			h.writeError(w, r, errUnauthorized)
			return
		}
		password = req.Password
	} else {
		password = r.FormValue("password")
	}

	if !h.checkPassword(r.Context(), password) {
		slog.Warn("admin login failed", "remote", r.RemoteAddr)
		h.writeError(w, r, errUnauthorized)
		return
	}

	token, err := h.store.CreateAuthSession(r.Context(), adminSubject)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	csrf, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.config.SecureCookies,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    csrf,
		Path:     "/admin",
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("admin signed in", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" && h.store != nil {
		_ = h.store.DeleteAuthSession(r.Context(), cookie.Value)
	}
	for _, name := range []string{sessionCookieName, csrfCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/admin",
			MaxAge:   -1,
			HttpOnly: name == sessionCookieName,
			Secure:   h.config.SecureCookies,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// adminSession reports how the current admin request was authenticated.
func adminSession(ctx context.Context) string {
	m, _ := ctx.Value(authMethodKey{}).(string)
	return m
}
