package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clare-ai/clare/store"
)

const maxChunkBatch = 64

type ingestRequest struct {
	Chunks []struct {
		Source  string `json:"source"`
		Title   string `json:"title,omitempty"`
		Content string `json:"content"`
	} `json:"chunks"`
}

// IngestChunks embeds and indexes a batch of course material chunks.
func (s *APIV1Service) IngestChunks(c echo.Context) error {
	ctx := c.Request().Context()
	courseID := c.Param("courseId")
	if courseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "course id is required")
	}

	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if len(req.Chunks) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "chunks are required")
	}
	if len(req.Chunks) > maxChunkBatch {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("at most %d chunks per request", maxChunkBatch))
	}

	texts := make([]string, 0, len(req.Chunks))
	for i, chunk := range req.Chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("chunk %d has empty content", i))
		}
		texts = append(texts, chunk.Content)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to embed chunks")
	}
	if len(vectors) != len(req.Chunks) {
		return echo.NewHTTPError(http.StatusBadGateway, "embedding count mismatch")
	}

	now := time.Now().Unix()
	created := make([]string, 0, len(req.Chunks))
	for i, chunk := range req.Chunks {
		stored, err := s.Store.CreateCourseChunk(ctx, &store.CreateCourseChunk{
			Chunk: &store.CourseChunk{
				UID:       uuid.NewString(),
				CourseID:  courseID,
				Source:    chunk.Source,
				Title:     chunk.Title,
				Content:   chunk.Content,
				CreatedTs: now,
			},
			Embedding: vectors[i],
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to index chunk")
		}
		created = append(created, stored.UID)
	}

	return c.JSON(http.StatusOK, map[string]any{"indexed": len(created), "uids": created})
}

// DeleteChunks drops all indexed chunks of a course.
func (s *APIV1Service) DeleteChunks(c echo.Context) error {
	courseID := c.Param("courseId")
	if courseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "course id is required")
	}

	deleted, err := s.Store.DeleteCourseChunks(c.Request().Context(), courseID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete chunks")
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}
