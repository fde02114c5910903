package sectors

import (
	"atendimento_backend/internal/sectors/repository"
	"atendimento_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SectorResponse is the sector representation for the console.
type SectorResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	AcceptsChat    bool      `json:"acceptsChat"`
	AcceptsCall    bool      `json:"acceptsCall"`
	AutoDistribute bool      `json:"autoDistribute"`
}

// Handler exposes the read-only sector listing.
type Handler struct {
	repo *repository.Repository
}

func NewHandler(repo *repository.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]SectorResponse, 0, len(list))
	for _, s := range list {
		out = append(out, SectorResponse{
			ID:             s.ID,
			Name:           s.Name,
			AcceptsChat:    s.AcceptsChat,
			AcceptsCall:    s.AcceptsCall,
			AutoDistribute: s.AutoDistribute,
		})
	}
	httpkit.OK(c, out)
}
