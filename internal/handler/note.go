package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmytrik/notesApi/internal/model"
	"github.com/dmytrik/notesApi/internal/queue"
	"github.com/dmytrik/notesApi/internal/repository"
	"github.com/dmytrik/notesApi/internal/service"
)

// NoteHandler bundles dependencies for note endpoints. Summarization
// happens before the revision manager is invoked, outside any store
// transaction, bounded by SummaryTimeout.
type NoteHandler struct {
	Notes          *repository.NoteRepo
	Revisions      *service.RevisionManager
	Summarizer     service.Summarizer
	SummaryTimeout time.Duration
}

func NewNoteHandler(n *repository.NoteRepo, r *service.RevisionManager, s service.Summarizer, timeout time.Duration) *NoteHandler {
	return &NoteHandler{Notes: n, Revisions: r, Summarizer: s, SummaryTimeout: timeout}
}

// ----- DTOs -----

type noteReq struct {
	Text string `json:"text"`
}

type noteResp struct {
	ID                uint64    `json:"id"`
	Text              string    `json:"text"`
	Summary           *string   `json:"summary,omitempty"`
	PreviousVersionID *uint64   `json:"previous_version_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UserID            uint64    `json:"user_id"`
}

func toNoteResp(n model.Note) noteResp {
	return noteResp{
		ID:                n.ID,
		Text:              n.Text,
		Summary:           n.Summary,
		PreviousVersionID: n.PreviousVersionID,
		CreatedAt:         n.CreatedAt,
		UserID:            n.UserID,
	}
}

// List returns all notes, visible to any authenticated user.
func (h *NoteHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	notes, err := h.Notes.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]noteResp, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteResp(n))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a single note by id.
func (h *NoteHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Notes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "note not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toNoteResp(n))
}

// Create starts a new lineage: summarize first, then insert a root
// version owned by the caller.
func (h *NoteHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req noteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
	}

	summary, err := h.summarize(c.Request().Context(), req.Text)
	if err != nil {
		return summaryErrResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	note, err := h.Revisions.CreateRoot(ctx, uid, req.Text, summary)
	if err != nil {
		if errors.Is(err, service.ErrEmptyText) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create note"})
	}

	h.publish(ctx, queue.ActionCreated, note)
	return c.JSON(http.StatusCreated, toNoteResp(note))
}

// Update never mutates the existing row. It inserts a new version
// pointing at the edited one; the new row belongs to the acting user.
func (h *NoteHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req noteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
	}

	summary, err := h.summarize(c.Request().Context(), req.Text)
	if err != nil {
		return summaryErrResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	note, err := h.Revisions.CreateRevision(ctx, id, uid, req.Text, summary)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyText):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "note not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "note already has a newer version"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update note"})
		}
	}

	h.publish(ctx, queue.ActionRevised, note)
	return c.JSON(http.StatusOK, toNoteResp(note))
}

// Delete removes one version and splices its chain back together.
// Ownership of the specific row is required; absence and foreign
// ownership are indistinguishable to the caller.
func (h *NoteHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Revisions.Delete(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "note not found or you don't have permission"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete note"})
	}

	h.publish(ctx, queue.ActionDeleted, model.Note{ID: id, UserID: uid})
	return c.NoContent(http.StatusNoContent)
}

// summarize runs the external summarization call under its own bounded
// timeout, before any transaction opens. An empty summary is stored as
// NULL.
func (h *NoteHandler) summarize(parent context.Context, text string) (*string, error) {
	ctx, cancel := context.WithTimeout(parent, h.SummaryTimeout)
	defer cancel()

	s, err := h.Summarizer.Summarize(ctx, text)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

// summaryErrResponse maps summarization failures: a timeout is a 504,
// anything else from the upstream is a 503.
func summaryErrResponse(c echo.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "summarization took too long"})
	}
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "summarization service unavailable"})
}

// publish emits a note event; failures are logged by the publisher and
// never affect the response.
func (h *NoteHandler) publish(ctx context.Context, action string, n model.Note) {
	_ = service.PublishNoteEvent(ctx, queue.NoteEvent{
		Action:            action,
		NoteID:            n.ID,
		UserID:            n.UserID,
		PreviousVersionID: n.PreviousVersionID,
		OccurredAt:        time.Now().UTC().Format(time.RFC3339),
	})
}
