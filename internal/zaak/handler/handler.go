// Package handler exposes the case lifecycle and relation operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zac/internal/zaak/models"
	"zac/internal/zaak/service"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/httputil"
	"zac/pkg/requestcontext"
)

// Service defines the case operations the handler exposes.
type Service interface {
	Open(ctx context.Context, req service.OpenRequest) (*models.Outcome, error)
	Get(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Suspend(ctx context.Context, caseID id.CaseID, reason string, expectedDays int) (*models.Outcome, error)
	Resume(ctx context.Context, caseID id.CaseID, reason string) (*models.Outcome, error)
	Extend(ctx context.Context, caseID id.CaseID, extraDays int, cascadeToTasks bool, reason string) (*models.Outcome, error)
	Close(ctx context.Context, caseID id.CaseID, resultTypeRef id.ResultTypeRef, reason string) (*models.Outcome, error)
	Terminate(ctx context.Context, caseID id.CaseID, endingReasonID, reason string) (*models.Outcome, error)
	Reopen(ctx context.Context, caseID id.CaseID, reason string) (*models.Outcome, error)
	SetInitiator(ctx context.Context, caseID id.CaseID, ident models.Identification) (*models.Outcome, error)
	Link(ctx context.Context, req service.LinkRequest) (*models.Outcome, error)
	Unlink(ctx context.Context, req service.UnlinkRequest) (*models.Outcome, error)
	ListRelations(ctx context.Context, caseID id.CaseID) ([]models.CaseRelation, error)
	Children(ctx context.Context, caseID id.CaseID) ([]id.CaseID, error)
}

// Handler handles the /zaken endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: svc, logger: logger}
}

// Register registers the case routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/zaken", func(r chi.Router) {
		r.Post("/", h.handleOpen)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Post("/suspend", h.handleSuspend)
			r.Post("/resume", h.handleResume)
			r.Post("/extend", h.handleExtend)
			r.Post("/close", h.handleClose)
			r.Post("/terminate", h.handleTerminate)
			r.Post("/reopen", h.handleReopen)
			r.Put("/initiator", h.handleSetInitiator)
			r.Get("/relations", h.handleListRelations)
			r.Post("/relations", h.handleLink)
			r.Delete("/relations/{kind}/{target}", h.handleUnlink)
			r.Get("/children", h.handleChildren)
		})
	})
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[openCaseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	versionID, err := id.ParseCaseTypeVersionID(req.CaseTypeVersionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := h.service.Open(ctx, service.OpenRequest{
		Identification:         req.Identification,
		CaseTypeVersionID:      versionID,
		StartDate:              req.StartDate,
		PlannedCompletionDate:  req.PlannedCompletionDate,
		UltimateCompletionDate: req.UltimateCompletionDate,
		AssignedGroup:          req.AssignedGroup,
		AssignedUser:           req.AssignedUser,
	})
	h.respond(w, r, http.StatusCreated, out, err)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), caseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	caseID, req, ok := decodeFor[suspendRequest](h, w, r)
	if !ok {
		return
	}
	out, err := h.service.Suspend(r.Context(), caseID, req.Reason, req.ExpectedDays)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	caseID, req, ok := decodeFor[reasonRequest](h, w, r)
	if !ok {
		return
	}
	out, err := h.service.Resume(r.Context(), caseID, req.Reason)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	caseID, req, ok := decodeFor[extendRequest](h, w, r)
	if !ok {
		return
	}
	out, err := h.service.Extend(r.Context(), caseID, req.ExtraDays, req.CascadeToTasks, req.Reason)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	caseID, req, ok := decodeFor[closeRequest](h, w, r)
	if !ok {
		return
	}
	ref, err := id.ParseResultTypeRef(req.ResultTypeRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := h.service.Close(r.Context(), caseID, ref, req.Reason)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	caseID, req, ok := decodeFor[terminateRequest](h, w, r)
	if !ok {
		return
	}
	out, err := h.service.Terminate(r.Context(), caseID, req.EndingReasonID, req.Reason)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	caseID, req, ok := decodeFor[reasonRequest](h, w, r)
	if !ok {
		return
	}
	out, err := h.service.Reopen(r.Context(), caseID, req.Reason)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleSetInitiator(w http.ResponseWriter, r *http.Request) {
	caseID, req, ok := decodeFor[initiatorRequest](h, w, r)
	if !ok {
		return
	}
	ident, err := models.ParseIdentification(req.Type, req.Number, req.VestigingNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := h.service.SetInitiator(r.Context(), caseID, ident)
	h.respond(w, r, http.StatusAccepted, out, err)
}

func (h *Handler) handleListRelations(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	rels, err := h.service.ListRelations(r.Context(), caseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, relationsResponse{Relations: rels})
}

func (h *Handler) handleChildren(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	children, err := h.service.Children(r.Context(), caseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := childrenResponse{Children: make([]string, 0, len(children))}
	for _, c := range children {
		resp.Children = append(resp.Children, c.String())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	caseID, req, ok := decodeFor[linkRequest](h, w, r)
	if !ok {
		return
	}
	target, err := id.ParseCaseID(req.TargetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := h.service.Link(r.Context(), service.LinkRequest{
		Source:        caseID,
		Target:        target,
		Kind:          req.Kind,
		ReverseKind:   req.ReverseKind,
		ChildIsTarget: req.ChildIsTarget,
	})
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	target, err := id.ParseCaseID(chi.URLParam(r, "target"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind := models.RelationKind(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown relation kind %q", kind))
		return
	}
	out, err := h.service.Unlink(r.Context(), service.UnlinkRequest{
		Source: caseID,
		Target: target,
		Kind:   kind,
		Reason: r.URL.Query().Get("reason"),
	})
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CaseID{}, false
	}
	return caseID, true
}

// decodeFor parses the case id from the path and decodes the body.
func decodeFor[T any, PT interface {
	*T
	httputil.Validatable
}](h *Handler, w http.ResponseWriter, r *http.Request) (id.CaseID, *T, bool) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return id.CaseID{}, nil, false
	}
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[T, PT](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return id.CaseID{}, nil, false
	}
	return caseID, req, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, out *models.Outcome, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, status, toOutcomeResponse(out))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if code := dErrors.GetCode(err); code == dErrors.CodeInternal || code == "" {
		h.logger.ErrorContext(ctx, "case request failed",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
