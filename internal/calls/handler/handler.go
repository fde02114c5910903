// Package handler exposes the call lifecycle over HTTP.
package handler

import (
	"net/http"

	"atendimento_backend/internal/calls/domain"
	"atendimento_backend/internal/calls/service"
	"atendimento_backend/internal/calls/transport"
	"atendimento_backend/platform/httpkit"
	"atendimento_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgAgentRequired    = "missing X-Agent-ID header"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterCallRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Start)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/advance", h.Advance)
	rg.POST("/:id/notes", h.AttachNote)
	rg.GET("/:id/notes", h.ListNotes)
}

func (h *Handler) RegisterContactRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/calls", h.ListByContact)
}

func (h *Handler) Start(c *gin.Context) {
	agentID, ok := actingAgent(c)
	if !ok {
		return
	}

	var req transport.StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	call, err := h.svc.Start(c.Request.Context(), service.StartParams{
		ContactID: req.ContactID,
		AgentID:   agentID,
		SectorID:  req.SectorID,
		Number:    req.Number,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewCallResponse(call))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	call, err := h.svc.GetCall(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewCallResponse(call))
}

func (h *Handler) Advance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transport.AdvanceCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	call, err := h.svc.Advance(c.Request.Context(), id, domain.Status(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewCallResponse(call))
}

func (h *Handler) AttachNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	authorID, ok := actingAgent(c)
	if !ok {
		return
	}

	var req transport.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	note, err := h.svc.AttachNote(c.Request.Context(), id, authorID, req.Body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewNoteResponse(note))
}

func (h *Handler) ListNotes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	notes, err := h.svc.ListNotes(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, transport.NewNoteResponse(n))
	}
	httpkit.OK(c, out)
}

func (h *Handler) ListByContact(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	calls, err := h.svc.ListByContact(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewCallResponses(calls))
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func actingAgent(c *gin.Context) (uuid.UUID, bool) {
	id, ok := httpkit.AgentFromContext(c)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, msgAgentRequired, nil)
		return uuid.Nil, false
	}
	return id, true
}
