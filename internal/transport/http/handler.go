package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"deckgen/internal/entity"
	"deckgen/internal/queue"
	"deckgen/internal/service"
	"deckgen/internal/store"
)

type Handler struct {
	jobSvc *service.JobService
}

func NewHandler(jobSvc *service.JobService) *Handler {
	return &Handler{jobSvc: jobSvc}
}

type generateDTO struct {
	CompanyURL        string `json:"company_url"`
	Topic             string `json:"topic"`
	SlideCount        int    `json:"slide_count,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
}

type generateResp struct {
	JobID string `json:"job_id"`
}

type jobErrorResp struct {
	Stage   string `json:"stage,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type statusResp struct {
	JobID           string        `json:"job_id"`
	State           string        `json:"state"`
	Progress        float64       `json:"progress"`
	Message         string        `json:"message"`
	StagesCompleted []string      `json:"stages_completed"`
	Error           *jobErrorResp `json:"error,omitempty"`
	CancelRequested bool          `json:"cancel_requested,omitempty"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
}

// Generate godoc
// @Summary Submit a deck generation job
// @Description Validates the request, admits it to the pipeline, and returns the job id for polling.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body generateDTO true "generation request"
// @Success 202 {object} generateResp
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /api/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var dto generateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := h.jobSvc.Submit(r.Context(), entity.GenerationInput{
		CompanyURL:        dto.CompanyURL,
		Topic:             dto.Topic,
		SlideCount:        dto.SlideCount,
		AdditionalContext: dto.AdditionalContext,
	})
	switch {
	case errors.Is(err, service.ErrValidation):
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, queue.ErrOverloaded):
		w.Header().Set("Retry-After", "30")
		writeErr(w, http.StatusServiceUnavailable, "service overloaded, try again later")
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusAccepted, generateResp{JobID: id.String()})
}

// JobStatus godoc
// @Summary Get job status
// @Tags jobs
// @Produce json
// @Param job_id path string true "job id (uuid)"
// @Success 200 {object} statusResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/job/{job_id} [get]
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobSvc.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := statusResp{
		JobID:           job.ID.String(),
		State:           string(job.State),
		Progress:        job.State.Progress(),
		Message:         job.State.Message(),
		StagesCompleted: job.CompletedStages(),
		CancelRequested: job.CancelRequested,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.Format(time.RFC3339),
	}
	if resp.StagesCompleted == nil {
		resp.StagesCompleted = []string{}
	}
	if job.Error != nil {
		resp.Error = &jobErrorResp{
			Stage:   string(job.Error.Stage),
			Code:    job.Error.Code,
			Message: job.Error.Message,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Download godoc
// @Summary Download the rendered presentation
// @Description Streams the .pptx artifact of a completed job.
// @Tags jobs
// @Produce application/vnd.openxmlformats-officedocument.presentationml.presentation
// @Param job_id path string true "job id (uuid)"
// @Success 200 {file} binary
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /api/download/{job_id} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobSvc.Artifact(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, service.ErrNotReady):
		writeErr(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.presentationml.presentation")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="presentation_%s.pptx"`, job.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(job.Artifact)
}

// CancelJob godoc
// @Summary Request job cancellation
// @Description Flags the job; the pipeline stops at the next stage boundary. No-op on finished jobs.
// @Tags jobs
// @Produce json
// @Param job_id path string true "job id (uuid)"
// @Success 202 {object} apiError
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/job/{job_id}/cancel [post]
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	if err := h.jobSvc.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, apiError{Message: "cancellation requested"})
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}
