// Package handler exposes the attendance routing surface over HTTP.
package handler

import (
	"net/http"
	"time"

	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/internal/attendance/queue"
	"atendimento_backend/internal/attendance/service"
	"atendimento_backend/internal/attendance/transport"
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

func (h *Handler) RegisterContactRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Receive)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/name", h.Rename)
	rg.POST("/:id/messages/inbound", h.InboundMessage)
	rg.POST("/:id/messages/outbound", h.OutboundMessage)
	rg.POST("/:id/open", h.Open)
	rg.POST("/:id/assign", h.Assign)
	rg.POST("/:id/complete", h.Complete)
	rg.POST("/:id/transfers", h.BeginTransfer)
	rg.POST("/:id/transfers/:token/commit", h.CommitTransfer)
	rg.DELETE("/:id/transfers/:token", h.AbandonTransfer)
	rg.GET("/:id/transfers", h.ListTransfers)
}

func (h *Handler) RegisterQueueRoutes(rg *gin.RouterGroup) {
	rg.GET("/general", h.GeneralQueue)
	rg.GET("/:sectorId", h.SectorQueue)
}

func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/workload", h.Workload)
}

func (h *Handler) Receive(c *gin.Context) {
	var req transport.ReceiveContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	contact, err := h.svc.ReceiveContact(c.Request.Context(), service.ReceiveContactParams{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		SectorID:    req.SectorID,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewContactResponse(contact))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	contact, err := h.svc.GetContact(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) Rename(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, ok := actingAgent(c)
	if !ok {
		return
	}

	var req transport.RenameContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	contact, err := h.svc.Rename(c.Request.Context(), id, req.DisplayName, actorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) InboundMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transport.InboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	at := time.Time{}
	if req.At != nil {
		at = *req.At
	}
	contact, err := h.svc.RecordInboundMessage(c.Request.Context(), id, at)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) Open(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	agentID, ok := actingAgent(c)
	if !ok {
		return
	}

	contact, err := h.svc.OpenConversation(c.Request.Context(), id, agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) OutboundMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	agentID, ok := actingAgent(c)
	if !ok {
		return
	}

	contact, err := h.svc.SendFirstMessage(c.Request.Context(), id, agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) Assign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, ok := actingAgent(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	contact, err := h.svc.Assign(c.Request.Context(), id, req.AgentID, &actorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, ok := actingAgent(c)
	if !ok {
		return
	}

	contact, err := h.svc.Complete(c.Request.Context(), id, actorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) BeginTransfer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, ok := actingAgent(c)
	if !ok {
		return
	}

	var req transport.BeginTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	pt, err := h.svc.BeginTransfer(c.Request.Context(), id, req.Destination(), actorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewPendingTransferResponse(pt))
}

func (h *Handler) CommitTransfer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	token, ok := pathID(c, "token")
	if !ok {
		return
	}

	var req transport.CommitTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	contact, err := h.svc.CommitTransfer(c.Request.Context(), id, token, domain.Reason(req.Reason), req.Note)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewContactResponse(contact))
}

func (h *Handler) AbandonTransfer(c *gin.Context) {
	if _, ok := pathID(c, "id"); !ok {
		return
	}
	token, ok := pathID(c, "token")
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.AbandonTransfer(token)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListTransfers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	records, err := h.svc.ListTransfers(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.TransferRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, transport.NewTransferRecordResponse(rec))
	}
	httpkit.OK(c, out)
}

func (h *Handler) GeneralQueue(c *gin.Context) {
	snapshots := h.svc.QueueSnapshot(nil, queueOrder(c))
	httpkit.OK(c, transport.NewQueueEntryResponses(snapshots))
}

func (h *Handler) SectorQueue(c *gin.Context) {
	sectorID, ok := pathID(c, "sectorId")
	if !ok {
		return
	}

	snapshots := h.svc.QueueSnapshot(&sectorID, queueOrder(c))
	httpkit.OK(c, transport.NewQueueEntryResponses(snapshots))
}

func (h *Handler) Workload(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	workload, err := h.svc.AgentWorkload(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewWorkloadResponse(workload))
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

func queueOrder(c *gin.Context) queue.Order {
	if c.Query("order") == string(queue.OrderDescending) {
		return queue.OrderDescending
	}
	return queue.OrderAscending
}
