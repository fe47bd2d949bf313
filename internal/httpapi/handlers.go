package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/check"
	"github.com/resumecheck/resumecheck/internal/store"
)

// Error codes surfaced in the JSON error envelope.
const (
	codeValidation        = "validation"
	codeResumeUnavailable = "resume_unavailable"
	codeNotFound          = "not_found"
	codeInternal          = "internal"
)

type submitRequest struct {
	JobPost          string                   `json:"job_post"`
	ResumeText       string                   `json:"resume_text"`
	SummarizeJobPost *bool                    `json:"summarize_job_post"`
	Qualifications   []check.RawQualification `json:"qualifications"`
	Profile          string                   `json:"profile"`
}

type submitResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
	Status    string `json:"status"`
}

type statusResponse struct {
	JobID          string                `json:"job_id"`
	Status         string                `json:"status"`
	Analysis       *check.Analysis       `json:"analysis,omitempty"`
	Error          string                `json:"error,omitempty"`
	Qualifications []check.Qualification `json:"qualifications,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type baseResumeRequest struct {
	ResumeText string `json:"resume_text"`
	Profile    string `json:"profile"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func apiError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, errorResponse{Error: message, Code: code})
}

// submitCheck validates the submission, resolves a missing resume from the
// stored base resume and enqueues a pending job. It returns immediately; the
// worker pool picks the job up later.
func (s *Server) submitCheck(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}

	if strings.TrimSpace(req.JobPost) == "" {
		return apiError(c, http.StatusBadRequest, codeValidation, "job_post is required")
	}

	ctx := c.Request().Context()

	resumeText := req.ResumeText
	if strings.TrimSpace(resumeText) == "" {
		stored, err := s.store.GetBaseResume(ctx, profileOrDefault(req.Profile))
		if errors.Is(err, store.ErrBaseResumeNotFound) {
			return apiError(c, http.StatusBadRequest, codeResumeUnavailable,
				"resume_text is missing and no base resume is stored")
		}
		if err != nil {
			s.logger.Error("base resume lookup failed", zap.Error(err))
			return apiError(c, http.StatusInternalServerError, codeInternal, "could not resolve base resume")
		}
		resumeText = stored
	}

	summarize := true
	if req.SummarizeJobPost != nil {
		summarize = *req.SummarizeJobPost
	}

	quals, dropped := check.FilterQualifications(req.Qualifications)
	if dropped > 0 {
		s.logger.Warn("dropped malformed qualification entries at intake",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(quals)),
		)
	}
	if len(quals) == 0 {
		quals = nil
	}

	job := &check.Job{
		ID:               uuid.NewString(),
		JobPost:          req.JobPost,
		ResumeText:       resumeText,
		SummarizeJobPost: summarize,
		Qualifications:   quals,
		Status:           check.StatusPending,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		s.logger.Error("creating job failed", zap.Error(err))
		return apiError(c, http.StatusInternalServerError, codeInternal, "could not create job")
	}

	s.logger.Info("resume check enqueued",
		zap.String("job_id", job.ID),
		zap.Bool("summarize_job_post", summarize),
		zap.Int("supplied_qualifications", len(quals)),
	)

	return c.JSON(http.StatusAccepted, submitResponse{
		JobID:     job.ID,
		StatusURL: "/api/checks/" + job.ID,
		Status:    check.StatusPending.String(),
	})
}

// getCheck is a pure read; it never mutates state or triggers processing.
func (s *Server) getCheck(c echo.Context) error {
	job, err := s.store.GetJob(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return apiError(c, http.StatusNotFound, codeNotFound, "job not found")
	}
	if err != nil {
		s.logger.Error("job lookup failed", zap.Error(err))
		return apiError(c, http.StatusInternalServerError, codeInternal, "could not load job")
	}

	return c.JSON(http.StatusOK, statusResponse{
		JobID:          job.ID,
		Status:         job.Status.String(),
		Analysis:       job.Analysis,
		Error:          job.Error,
		Qualifications: job.Qualifications,
		UpdatedAt:      job.UpdatedAt,
	})
}

func (s *Server) putBaseResume(c echo.Context) error {
	var req baseResumeRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}

	if strings.TrimSpace(req.ResumeText) == "" {
		return apiError(c, http.StatusBadRequest, codeValidation, "resume_text is required")
	}

	profile := profileOrDefault(req.Profile)
	if err := s.store.SetBaseResume(c.Request().Context(), profile, req.ResumeText); err != nil {
		s.logger.Error("storing base resume failed", zap.Error(err))
		return apiError(c, http.StatusInternalServerError, codeInternal, "could not store base resume")
	}

	s.logger.Info("base resume stored", zap.String("profile", profile))

	return c.JSON(http.StatusOK, map[string]string{"profile": profile})
}

func (s *Server) getBaseResume(c echo.Context) error {
	profile := profileOrDefault(c.QueryParam("profile"))

	resumeText, err := s.store.GetBaseResume(c.Request().Context(), profile)
	if errors.Is(err, store.ErrBaseResumeNotFound) {
		return apiError(c, http.StatusNotFound, codeNotFound, "no base resume stored")
	}
	if err != nil {
		s.logger.Error("base resume lookup failed", zap.Error(err))
		return apiError(c, http.StatusInternalServerError, codeInternal, "could not load base resume")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"profile":     profile,
		"resume_text": resumeText,
	})
}

func profileOrDefault(profile string) string {
	if strings.TrimSpace(profile) == "" {
		return DefaultProfile
	}
	return profile
}
