package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opencbt/practice-backend/internal/middleware"
	"github.com/opencbt/practice-backend/internal/response"
	"github.com/opencbt/practice-backend/internal/service"
)

// CatalogHandler serves the student browse flow.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListExams godoc
// GET /api/v1/exams
// Returns all exams for the exam-select screen.
func (h *CatalogHandler) ListExams(c *gin.Context) {
	exams, err := h.catalogService.ListExams(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// ListSubjects godoc
// GET /api/v1/exams/:id/subjects
// Returns the exam's subjects with question counts and the caller's
// attempted flags for the subject-select screen.
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, subjects, err := h.catalogService.ListSubjects(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam":     exam,
		"subjects": subjects,
	})
}
