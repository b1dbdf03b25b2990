package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	appI18n "github.com/truonghoc/studio/internal/i18n"
	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/media"
	"github.com/truonghoc/studio/internal/poller"
	"github.com/truonghoc/studio/internal/studio"
)

var (
	errBusy          = errors.New("operation already running")
	errUnknownCareer = errors.New("unknown career")
	errUnauthorized  = errors.New("unauthorized")
	errVideoNotFound = errors.New("video not found")
	errVideoNotReady = errors.New("video not ready")
)

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// writeError maps err to a status code and a localized message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := h.describeError(r, err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.Info("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

func (h *Handler) describeError(r *http.Request, err error) (int, errorResponse) {
	ctx := r.Context()
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{
			Error: appI18n.Td(ctx, "ErrUploadTooLarge", map[string]any{"MB": h.config.MaxUploadMB}),
		}
	case errors.Is(err, errBusy):
		return http.StatusConflict, errorResponse{Error: appI18n.T(ctx, "ErrBusy")}
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: appI18n.T(ctx, "ErrUnauthorized")}
	case errors.Is(err, errVideoNotFound):
		return http.StatusNotFound, errorResponse{Error: appI18n.T(ctx, "ErrVideoNotFound")}
	case errors.Is(err, errVideoNotReady):
		return http.StatusConflict, errorResponse{Error: appI18n.T(ctx, "ErrVideoNotReady")}
	case errors.Is(err, errUnknownCareer):
		return http.StatusBadRequest, errorResponse{
			Error: appI18n.Td(ctx, "ErrUnknownCareer", map[string]any{"Career": detail(err, errUnknownCareer)}),
		}
	case errors.Is(err, studio.ErrMissingInput):
		return http.StatusBadRequest, errorResponse{
			Error: appI18n.Td(ctx, "ErrMissingInput", map[string]any{"Detail": detail(err, studio.ErrMissingInput)}),
		}
	case errors.Is(err, studio.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{
			Error: appI18n.Td(ctx, "ErrInvalidInput", map[string]any{"Detail": detail(err, studio.ErrInvalidInput)}),
		}
	case errors.Is(err, media.ErrUnreadable):
		return http.StatusBadRequest, errorResponse{Error: appI18n.T(ctx, "ErrUnreadableFile")}
	case errors.Is(err, studio.ErrVideoUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: appI18n.T(ctx, "ErrVideoUnavailable")}
	}

	resp := errorResponse{Error: appI18n.T(ctx, remoteMessageID(err))}
	status := http.StatusBadGateway
	if llm.IsQuotaError(err) {
		status = http.StatusTooManyRequests
	}
	var ce *studio.CapabilityError
	if errors.As(err, &ce) && ce.Premium {
		resp.Hint = appI18n.T(ctx, "PremiumHint")
	}
	return status, resp
}

func remoteMessageID(err error) string {
	switch {
	case errors.Is(err, studio.ErrNoImage):
		return "ErrNoImage"
	case errors.Is(err, studio.ErrMalformedQuiz):
		return "ErrMalformedQuiz"
	case errors.Is(err, studio.ErrEmptyText):
		return "ErrEmptyText"
	case errors.Is(err, poller.ErrNoResultLocator):
		return "ErrNoResultLocator"
	case llm.IsQuotaError(err):
		return "ErrQuota"
	}
	return "ErrRemote"
}

// detail returns the text that follows sentinel in err's message, so
// "image: missing required input: portrait" yields "portrait".
func detail(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return ""
}
