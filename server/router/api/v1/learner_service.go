package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clare-ai/clare/ai/learner"
	"github.com/clare-ai/clare/store"
)

// profileRefreshInterval is how often active students are re-analyzed in
// the background.
const profileRefreshInterval = 24 * time.Hour

// StartProfileRefreshLoop periodically re-analyzes active students until
// the context is cancelled.
func (s *APIV1Service) StartProfileRefreshLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(profileRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.analyzer.RefreshActiveStudents(ctx); err != nil {
					slog.Warn("scheduled profile refresh failed", "error", err)
				}
			}
		}
	}()
}

type evidenceRequest struct {
	Source   string `json:"source"` // "questionnaire" or "manual"
	Evidence []struct {
		Dimension  string  `json:"dimension"`
		Field      string  `json:"field,omitempty"`
		Value      any     `json:"value"`
		Confidence float64 `json:"confidence"`
		Weight     float64 `json:"weight"`
		Note       string  `json:"note,omitempty"`
	} `json:"evidence"`
}

// GetLearnerProfile returns the student's profile body. Provenance stays
// internal.
func (s *APIV1Service) GetLearnerProfile(c echo.Context) error {
	studentID := c.Param("studentId")
	if studentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student id is required")
	}

	p, err := s.analyzer.LoadProfile(c.Request().Context(), studentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load profile")
	}
	return c.JSON(http.StatusOK, p)
}

// SubmitEvidence applies questionnaire or manual evidence to a student's
// profile. Interaction evidence only enters through chat analysis, never
// through this endpoint.
func (s *APIV1Service) SubmitEvidence(c echo.Context) error {
	studentID := c.Param("studentId")
	if studentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student id is required")
	}

	var req evidenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	source := learner.Source(req.Source)
	if source != learner.SourceQuestionnaire && source != learner.SourceManual {
		return echo.NewHTTPError(http.StatusBadRequest, "source must be questionnaire or manual")
	}
	if len(req.Evidence) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "evidence is required")
	}

	now := time.Now().UTC()
	items := make([]learner.Evidence, 0, len(req.Evidence))
	for _, raw := range req.Evidence {
		weight := raw.Weight
		if weight == 0 {
			weight = 1.0
		}
		item := learner.Evidence{
			Source:     source,
			Timestamp:  now,
			Dimension:  raw.Dimension,
			Field:      raw.Field,
			Value:      raw.Value,
			Confidence: raw.Confidence,
			Weight:     weight,
			Note:       raw.Note,
		}
		if err := item.Validate(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		items = append(items, item)
	}

	if err := s.analyzer.ApplyEvidence(c.Request().Context(), studentID, items, string(source)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to apply evidence")
	}

	p, err := s.analyzer.LoadProfile(c.Request().Context(), studentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load updated profile")
	}
	return c.JSON(http.StatusOK, p)
}

// RefreshProfiles re-analyzes all recently active students.
func (s *APIV1Service) RefreshProfiles(c echo.Context) error {
	refreshed, err := s.analyzer.RefreshActiveStudents(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "profile refresh failed")
	}
	return c.JSON(http.StatusOK, map[string]int{"refreshed": refreshed})
}

// ListChatHistory returns the student's recent chat turns, newest first.
func (s *APIV1Service) ListChatHistory(c echo.Context) error {
	studentID := c.Param("studentId")
	if studentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student id is required")
	}

	messages, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{
		StudentID: &studentID,
		Limit:     50,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list chat history")
	}
	return c.JSON(http.StatusOK, messages)
}
