// Package handler exposes case-type configurations and the catalog webhook over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zac/internal/configuration/models"
	"zac/internal/configuration/notifications"
	"zac/internal/configuration/resolver"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/httputil"
	"zac/pkg/requestcontext"
)

const maxNotificationBytes = 1 << 20

// Configurations reads and updates configuration records.
type Configurations interface {
	Get(ctx context.Context, versionID id.CaseTypeVersionID) (*models.Configuration, error)
	Update(ctx context.Context, cfg *models.Configuration) (*models.Configuration, error)
}

// Notifications applies a decoded catalog notification.
type Notifications interface {
	Handle(ctx context.Context, n models.VersionPublished) (resolver.Outcome, error)
}

type Handler struct {
	configurations Configurations
	notifications  Notifications
	logger         *slog.Logger
}

func New(configurations Configurations, notifications Notifications, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{configurations: configurations, notifications: notifications, logger: logger}
}

// RegisterNotifications registers the catalog webhook.
func (h *Handler) RegisterNotifications(r chi.Router) {
	r.Post("/catalog/notifications", h.handleNotification)
}

// Register registers the configuration routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/configurations/{versionID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
	})
}

func (h *Handler) handleNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read notification"))
		return
	}
	n, err := notifications.Decode(body)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected catalog notification",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	outcome, err := h.notifications.Handle(ctx, n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notificationResponse{
		VersionID: n.VersionID.String(),
		Outcome:   string(outcome),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}
	cfg, err := h.configurations.Get(r.Context(), versionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[updateConfigurationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cfg, err := req.toModel(versionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	saved, err := h.configurations.Update(ctx, cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) versionID(w http.ResponseWriter, r *http.Request) (id.CaseTypeVersionID, bool) {
	versionID, err := id.ParseCaseTypeVersionID(chi.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CaseTypeVersionID{}, false
	}
	return versionID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if code := dErrors.GetCode(err); code == dErrors.CodeInternal || code == "" {
		h.logger.ErrorContext(ctx, "configuration request failed",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
