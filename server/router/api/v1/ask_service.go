package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clare-ai/clare/ai/learner"
	"github.com/clare-ai/clare/ai/tutor"
	"github.com/clare-ai/clare/store"
)

const maxQuestionLength = 2000

// analyzeTimeout bounds the background profile analysis after an answer.
const analyzeTimeout = 60 * time.Second

type askRequest struct {
	StudentID string `json:"student_id"`
	Question  string `json:"question"`
}

type askResponse struct {
	Answer        string `json:"answer"`
	Route         string `json:"route"`
	RetryCount    int    `json:"retry_count"`
	TerminalState string `json:"terminal_state"`
	Degraded      bool   `json:"degraded"`
}

// Ask answers one student question through the full pipeline. Chat history
// is persisted only after the answer is final; a failed run stores nothing.
func (s *APIV1Service) Ask(c echo.Context) error {
	ctx := c.Request().Context()

	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	req.Question = strings.TrimSpace(req.Question)
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	if len(req.Question) > maxQuestionLength {
		return echo.NewHTTPError(http.StatusBadRequest, "question is too long")
	}
	if req.StudentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student_id is required")
	}

	style := s.learnerStyle(ctx, req.StudentID)

	result, err := s.orchestrator.Run(ctx, req.Question, style)
	if err != nil {
		if ctx.Err() != nil {
			return echo.NewHTTPError(http.StatusRequestTimeout, "request cancelled")
		}
		if result == nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to answer question")
		}
		// The orchestrator already shaped the user-visible failure answer.
		return c.JSON(http.StatusOK, toAskResponse(result))
	}

	s.persistExchange(ctx, req.StudentID, req.Question, result)
	s.scheduleAnalysis(req.StudentID)

	return c.JSON(http.StatusOK, toAskResponse(result))
}

func toAskResponse(result *tutor.Result) *askResponse {
	return &askResponse{
		Answer:        result.Answer,
		Route:         result.Route.String(),
		RetryCount:    result.RetryCount,
		TerminalState: result.TerminalState.String(),
		Degraded:      result.Degraded,
	}
}

// learnerStyle loads the personalization dimensions; a missing or unreadable
// profile degrades to a neutral style.
func (s *APIV1Service) learnerStyle(ctx context.Context, studentID string) *tutor.LearnerStyle {
	p, err := s.analyzer.LoadProfile(ctx, studentID)
	if err != nil {
		slog.Warn("failed to load learner profile, answering neutrally", "student_id", studentID, "error", err)
		return nil
	}

	style := &tutor.LearnerStyle{
		AIStrategy:       p.StyleSummary(learner.DimAIStrategy),
		CognitiveProfile: p.StyleSummary(learner.DimCognitiveProfile),
	}
	if style.AIStrategy == "" && style.CognitiveProfile == "" {
		return nil
	}
	return style
}

func (s *APIV1Service) persistExchange(ctx context.Context, studentID, question string, result *tutor.Result) {
	now := time.Now().Unix()
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		StudentID: studentID,
		Role:      store.ChatRoleUser,
		Content:   question,
		CreatedTs: now,
	}); err != nil {
		slog.Error("failed to persist question", "student_id", studentID, "error", err)
		return
	}
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		StudentID: studentID,
		Role:      store.ChatRoleAssistant,
		Content:   result.Answer,
		Route:     result.Route.String(),
		CreatedTs: now,
	}); err != nil {
		slog.Error("failed to persist answer", "student_id", studentID, "error", err)
	}
}

// scheduleAnalysis updates the learner profile in the background so the
// response does not wait on it.
func (s *APIV1Service) scheduleAnalysis(studentID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
		defer cancel()
		if err := s.analyzer.AnalyzeStudent(ctx, studentID); err != nil {
			slog.Warn("background profile analysis failed", "student_id", studentID, "error", err)
		}
	}()
}
