package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulseboard/kpi-import/internal/api/response"
	"github.com/pulseboard/kpi-import/internal/config"
	"github.com/pulseboard/kpi-import/internal/ingest"
)

// ImportHandler handles data-field file imports: preview, full import, and
// template download.
type ImportHandler struct {
	pipeline *ingest.Pipeline
	cfg      *config.Config
}

// NewImportHandler creates a new import handler.
func NewImportHandler(pipeline *ingest.Pipeline, cfg *config.Config) *ImportHandler {
	return &ImportHandler{pipeline: pipeline, cfg: cfg}
}

// HandleImport handles POST /api/v1/data-fields/import.
//
// Structural rejection returns 422 before any catalog mutation; a completed
// import returns 200 with the full report even when some rows failed.
func (h *ImportHandler) HandleImport(c *gin.Context) {
	orgID := c.MustGet("org_id").(uuid.UUID)

	file, ok := h.formFile(c)
	if !ok {
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	rr, err := ingest.NewRowReader(file.Filename, src)
	if err != nil {
		h.importError(c, err)
		return
	}

	report, err := h.pipeline.Import(c.Request.Context(), orgID, rr)
	if err != nil {
		h.importError(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// HandlePreview handles POST /api/v1/data-fields/import/preview. Preview
// never touches the catalog.
func (h *ImportHandler) HandlePreview(c *gin.Context) {
	file, ok := h.formFile(c)
	if !ok {
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	rr, err := ingest.NewRowReader(file.Filename, src)
	if err != nil {
		h.importError(c, err)
		return
	}

	preview, err := ingest.Preview(rr, h.cfg.Import.PreviewRows)
	if err != nil {
		h.importError(c, err)
		return
	}

	response.Success(c, http.StatusOK, preview)
}

// HandleTemplate handles GET /api/v1/data-fields/import/template. Returns
// the sample file in the import format; ?format=xlsx selects a workbook.
func (h *ImportHandler) HandleTemplate(c *gin.Context) {
	if c.Query("format") == "xlsx" {
		data, err := ingest.TemplateXLSX()
		if err != nil {
			response.InternalError(c, fmt.Sprintf("failed to render template: %v", err))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="data_field_import_template.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
		return
	}

	data, err := ingest.TemplateCSV()
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to render template: %v", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="data_field_import_template.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// formFile extracts and validates the multipart upload. Responds and
// returns false on any defect.
func (h *ImportHandler) formFile(c *gin.Context) (*multipart.FileHeader, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required", nil)
		return nil, false
	}

	if file.Size > h.cfg.Upload.MaxFileSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds max size of %d bytes", h.cfg.Upload.MaxFileSize), nil)
		return nil, false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	for _, allowed := range h.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return file, true
		}
	}
	response.BadRequest(c, fmt.Sprintf("file must be one of: %s", strings.Join(h.cfg.Upload.AllowedExtensions, ", ")), nil)
	return nil, false
}

// importError maps pipeline errors to HTTP responses: structural defects are
// 422 (caller error, nothing was written), everything else is a 500.
func (h *ImportHandler) importError(c *gin.Context, err error) {
	var structural *ingest.StructuralError
	if errors.As(err, &structural) {
		response.UnprocessableEntity(c, structural.Reason, nil)
		return
	}
	response.InternalError(c, fmt.Sprintf("import failed: %v", err))
}
