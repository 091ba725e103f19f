// Package resthttp exposes the connector lifecycle over HTTP: authorize
// redirects, the provider callback, status reads, refresh, and disconnect.
package resthttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/twjackysu/go-connectors/core"
)

// ConnectorService is the slice of the core service the HTTP surface
// consumes.
type ConnectorService interface {
	BeginAuthorization(ctx context.Context, req core.BeginAuthorizationRequest) (core.BeginAuthorizationResponse, error)
	CompleteAuthorization(ctx context.Context, req core.CompleteAuthorizationRequest) (core.CallbackCompletion, error)
	EnsureFresh(ctx context.Context, req core.EnsureFreshRequest) (core.FreshCredential, error)
	Status(ctx context.Context, userID string) ([]core.ConnectorStatus, error)
	Disconnect(ctx context.Context, req core.DisconnectRequest) (core.DisconnectResult, error)
}

// IdentityResolver extracts the acting user ID from a request. The
// callback route cannot use it; identity there comes from the state
// record.
type IdentityResolver interface {
	Resolve(r *http.Request) (string, error)
}

const DefaultIdentityHeader = "X-User-ID"

// HeaderIdentityResolver reads the user ID from a request header, for
// deployments where an upstream gateway has already authenticated the
// caller.
type HeaderIdentityResolver struct {
	Header string
}

func (h HeaderIdentityResolver) Resolve(r *http.Request) (string, error) {
	header := strings.TrimSpace(h.Header)
	if header == "" {
		header = DefaultIdentityHeader
	}
	userID := strings.TrimSpace(r.Header.Get(header))
	if userID == "" {
		return "", goerrors.New(fmt.Sprintf("resthttp: missing %s header", header), goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode("CONNECTOR_IDENTITY_MISSING")
	}
	return userID, nil
}

type Handler struct {
	service  ConnectorService
	identity IdentityResolver
	logger   core.Logger
}

type HandlerOption func(*Handler)

func WithIdentityResolver(resolver IdentityResolver) HandlerOption {
	return func(h *Handler) {
		if resolver != nil {
			h.identity = resolver
		}
	}
}

func WithLogger(logger core.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(service ConnectorService, options ...HandlerOption) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("resthttp: connector service is required")
	}
	handler := &Handler{
		service:  service,
		identity: HeaderIdentityResolver{},
		logger:   glog.Ensure(nil),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(handler)
	}
	return handler, nil
}

// Register mounts the connector routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/connectors", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Route("/{provider}", func(r chi.Router) {
			r.Get("/connect", h.connect)
			r.Get("/callback", h.callback)
			r.Post("/refresh", h.refresh)
			r.Delete("/", h.disconnect)
		})
	})
}

// NewRouter builds a standalone router with the connector routes mounted.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out, err := h.service.BeginAuthorization(r.Context(), core.BeginAuthorizationRequest{
		UserID:     userID,
		ProviderID: chi.URLParam(r, "provider"),
		ReturnURL:  strings.TrimSpace(r.URL.Query().Get("return_url")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, out.AuthorizationURL, http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if providerErr := strings.TrimSpace(query.Get("error")); providerErr != "" {
		err := goerrors.New(
			fmt.Sprintf("resthttp: provider rejected authorization: %s", providerErr),
			goerrors.CategoryAuth,
		).WithCode(http.StatusBadRequest).
			WithTextCode(core.ConnectorErrorTokenExchangeFailed)
		h.writeError(w, r, err)
		return
	}

	out, err := h.service.CompleteAuthorization(r.Context(), core.CompleteAuthorizationRequest{
		ProviderID: chi.URLParam(r, "provider"),
		Code:       query.Get("code"),
		State:      query.Get("state"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if strings.TrimSpace(out.ReturnURL) != "" {
		http.Redirect(w, r, out.ReturnURL, http.StatusFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"provider":  out.ProviderID,
		"connected": true,
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	statuses, err := h.service.Status(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if statuses == nil {
		statuses = []core.ConnectorStatus{}
	}
	h.writeJSON(w, http.StatusOK, statuses)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fresh, err := h.service.EnsureFresh(r.Context(), core.EnsureFreshRequest{
		UserID:     userID,
		ProviderID: chi.URLParam(r, "provider"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body := map[string]any{
		"provider":  fresh.ProviderID,
		"refreshed": fresh.Refreshed,
	}
	if fresh.ExpiresAt != nil {
		body["expiresAt"] = fresh.ExpiresAt
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out, err := h.service.Disconnect(r.Context(), core.DisconnectRequest{
		UserID:     userID,
		ProviderID: chi.URLParam(r, "provider"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"provider":     out.ProviderID,
		"disconnected": true,
		"revoked":      out.Revoked,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && h.logger != nil {
		h.logger.Error("encode response", "error", err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	textCode := core.ConnectorErrorInternal
	message := "An unexpected error occurred"

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code > 0 {
			status = richErr.Code
		}
		if strings.TrimSpace(richErr.TextCode) != "" {
			textCode = richErr.TextCode
		}
		if strings.TrimSpace(richErr.Message) != "" {
			message = richErr.Message
		}
	}

	if h.logger != nil {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"text_code", textCode,
			"error", err.Error(),
		)
	}

	h.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":      status,
			"text_code": textCode,
			"message":   message,
		},
	})
}
