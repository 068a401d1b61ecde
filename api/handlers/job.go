package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aryaraj132/yt-downloader/api/dto"
	"github.com/aryaraj132/yt-downloader/api/middleware"
	"github.com/aryaraj132/yt-downloader/api/models"
	"github.com/aryaraj132/yt-downloader/api/ratelimit"
	"github.com/aryaraj132/yt-downloader/api/repository"
	"github.com/aryaraj132/yt-downloader/api/service"
	"github.com/aryaraj132/yt-downloader/api/token"
	"github.com/aryaraj132/yt-downloader/api/validation"
)

type JobOrchestrator interface {
	CreateJob(ctx context.Context, caller service.Caller, kind models.JobKind, descriptor models.Descriptor) (*dto.JobResponse, error)
	RetryJob(ctx context.Context, caller service.Caller, jobID string) (*dto.JobResponse, error)
	JobStatus(ctx context.Context, caller service.Caller, jobID string) (*dto.JobResponse, error)
}

type JobHandler struct {
	service JobOrchestrator
	logger  *zap.Logger
}

func NewJobHandler(service JobOrchestrator, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	kind := models.JobKind(req.Kind)
	descriptor := descriptorFrom(&req)
	caller := h.caller(r, &req)

	resp, err := h.service.CreateJob(r.Context(), caller, kind, descriptor)
	if err != nil {
		h.handleJobError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusAccepted, resp)
}

func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	resp, err := h.service.JobStatus(r.Context(), h.caller(r, nil), jobID)
	if err != nil {
		h.handleJobError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	resp, err := h.service.RetryJob(r.Context(), h.caller(r, nil), jobID)
	if err != nil {
		h.handleJobError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, resp)
}

// caller builds the trust context for this request: private tokens are fully
// authenticated, public tokens attribute an owner without elevated trust, and
// everything else is a fingerprinted guest.
func (h *JobHandler) caller(r *http.Request, req *dto.CreateJobRequest) service.Caller {
	var fp *dto.Fingerprint
	if req != nil {
		fp = req.Fingerprint
	}

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		return service.Caller{ClientID: ratelimit.ClientID(clientIP(r), fp)}
	}

	return service.Caller{
		Owner:         identity.Owner,
		Authenticated: identity.Kind == token.KindPrivate,
		ClientID:      ratelimit.ClientID(clientIP(r), fp),
	}
}

func (h *JobHandler) handleJobError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := middleware.GetTraceID(r.Context())

	var verr *validation.Error
	if errors.As(err, &verr) {
		h.respondError(w, verr.Reason, err, traceID, http.StatusBadRequest)
		return
	}

	var qerr *service.QuotaError
	if errors.As(err, &qerr) {
		h.logger.Info("Job creation denied by rate limit",
			zap.String("trace_id", traceID))
		h.respondJSON(w, http.StatusTooManyRequests, dto.ErrorResponse{
			Error:   "Rate limit exceeded",
			TraceID: traceID,
			Quota: &dto.Quota{
				Remaining: qerr.Decision.Remaining,
				Limit:     qerr.Decision.Limit,
				ResetAt:   qerr.Decision.ResetAt.UTC().Format("2006-01-02T15:04:05Z"),
			},
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		h.respondError(w, "Job not found", err, traceID, http.StatusNotFound)
	case errors.Is(err, repository.ErrInvalidTransition):
		h.respondError(w, "Job is not in a retryable state", err, traceID, http.StatusConflict)
	case errors.Is(err, service.ErrForbidden):
		h.respondError(w, "Unauthorized access to job", err, traceID, http.StatusForbidden)
	case errors.Is(err, token.ErrUnauthorized):
		h.respondError(w, "Invalid or expired token", err, traceID, http.StatusUnauthorized)
	case errors.Is(err, service.ErrQueueUnavailable):
		h.respondError(w, "Job queue unavailable", err, traceID, http.StatusServiceUnavailable)
	default:
		h.respondError(w, "Internal server error", err, traceID, http.StatusInternalServerError)
	}
}

func descriptorFrom(req *dto.CreateJobRequest) models.Descriptor {
	d := models.Descriptor{
		SourceURL:     req.URL,
		Format:        req.Format,
		Resolution:    req.Resolution,
		InputKey:      req.InputKey,
		Codec:         req.Codec,
		QualityPreset: req.QualityPreset,
		Duration:      req.Duration,
	}
	if req.StartTime != nil {
		d.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		d.EndTime = *req.EndTime
	}
	return d
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *JobHandler) respondError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.String("trace_id", traceID), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *JobHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
