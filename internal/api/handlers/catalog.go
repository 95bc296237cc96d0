package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulseboard/kpi-import/internal/api/response"
	"github.com/pulseboard/kpi-import/internal/models"
	"github.com/pulseboard/kpi-import/internal/repository"
)

// CatalogHandler exposes read-only views over the data-field catalog.
type CatalogHandler struct {
	fieldRepo *repository.DataFieldRepository
	roomRepo  *repository.RoomRepository
	kpiRepo   *repository.KPIRepository
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(
	fieldRepo *repository.DataFieldRepository,
	roomRepo *repository.RoomRepository,
	kpiRepo *repository.KPIRepository,
) *CatalogHandler {
	return &CatalogHandler{fieldRepo: fieldRepo, roomRepo: roomRepo, kpiRepo: kpiRepo}
}

// HandleListFields handles GET /api/v1/data-fields.
func (h *CatalogHandler) HandleListFields(c *gin.Context) {
	orgID := c.MustGet("org_id").(uuid.UUID)

	fields, err := h.fieldRepo.List(c.Request.Context(), orgID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list data fields: %v", err))
		return
	}
	if fields == nil {
		fields = []models.DataField{}
	}
	response.Success(c, http.StatusOK, gin.H{"data_fields": fields})
}

// HandleListRooms handles GET /api/v1/rooms.
func (h *CatalogHandler) HandleListRooms(c *gin.Context) {
	orgID := c.MustGet("org_id").(uuid.UUID)

	rooms, err := h.roomRepo.List(c.Request.Context(), orgID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list rooms: %v", err))
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	response.Success(c, http.StatusOK, gin.H{"rooms": rooms})
}

// HandleListKPIs handles GET /api/v1/kpis.
func (h *CatalogHandler) HandleListKPIs(c *gin.Context) {
	orgID := c.MustGet("org_id").(uuid.UUID)

	kpis, err := h.kpiRepo.List(c.Request.Context(), orgID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list KPIs: %v", err))
		return
	}
	if kpis == nil {
		kpis = []models.KPI{}
	}
	response.Success(c, http.StatusOK, gin.H{"kpis": kpis})
}
