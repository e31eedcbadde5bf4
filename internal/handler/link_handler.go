package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avkuzmin/slugline/internal/middleware"
	"github.com/avkuzmin/slugline/internal/models"
	"github.com/avkuzmin/slugline/internal/repository"
	"github.com/avkuzmin/slugline/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LinkHandler is a thin pass-through: it translates HTTP to service calls
// and service errors to statuses. All business rules live below it.
type LinkHandler struct {
	links     service.LinkService
	redirects service.RedirectService
	logger    *zap.Logger
}

func NewLinkHandler(links service.LinkService, redirects service.RedirectService, logger *zap.Logger) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		links:     links,
		redirects: redirects,
		logger:    logger,
	}
}

type LinkResponse struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	TargetURL string `json:"target_url"`
	ShortURL  string `json:"short_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func linkResponse(link *models.Link) LinkResponse {
	return LinkResponse{
		ID:        link.ID,
		Slug:      link.Slug,
		TargetURL: link.TargetURL,
		ShortURL:  "/" + link.Slug,
		CreatedAt: link.CreatedAt.Format(time.RFC3339),
		UpdatedAt: link.UpdatedAt.Format(time.RFC3339),
	}
}

// owner pulls the authenticated owner id out of the context; a missing id
// means the route was wired without the identity middleware.
func (h *LinkHandler) owner(c *gin.Context) (string, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "No owner identity on request",
		})
	}
	return ownerID, ok
}

func (h *LinkHandler) linkID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Link id must be an integer",
		})
		return 0, false
	}
	return id, true
}

// writeServiceError maps service/repository errors onto statuses.
func (h *LinkHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Slug and target URL must not be empty",
		})
	case errors.Is(err, repository.ErrSlugTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "slug_taken",
			Message: "This slug is already in use",
		})
	case errors.Is(err, repository.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong",
		})
	}
}

// CreateLink godoc
// @Summary Create a link
// @Description Create a slug -> target URL mapping for the current owner
// @Tags links
// @Accept json
// @Produce json
// @Param request body models.CreateLinkInput true "Link to create"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/links [post]
func (h *LinkHandler) CreateLink(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	var input models.CreateLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	link, err := h.links.CreateLink(c.Request.Context(), ownerID, &input)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, linkResponse(link))
}

// ListLinks godoc
// @Summary List the current owner's links
// @Tags links
// @Produce json
// @Success 200 {array} LinkResponse
// @Router /api/v1/links [get]
func (h *LinkHandler) ListLinks(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}

	links, err := h.links.ListLinks(c.Request.Context(), ownerID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	responses := make([]LinkResponse, 0, len(links))
	for i := range links {
		responses = append(responses, linkResponse(&links[i]))
	}

	c.JSON(http.StatusOK, responses)
}

// GetLink godoc
// @Summary Fetch one link by id, scoped to the current owner
// @Tags links
// @Produce json
// @Param id path int true "Link id"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{id} [get]
func (h *LinkHandler) GetLink(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	id, ok := h.linkID(c)
	if !ok {
		return
	}

	link, err := h.links.GetLink(c.Request.Context(), ownerID, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkResponse(link))
}

// UpdateLink godoc
// @Summary Update a link's slug or target URL
// @Tags links
// @Accept json
// @Produce json
// @Param id path int true "Link id"
// @Param request body models.UpdateLinkInput true "Fields to update"
// @Success 200 {object} LinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{id} [patch]
func (h *LinkHandler) UpdateLink(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	id, ok := h.linkID(c)
	if !ok {
		return
	}

	var input models.UpdateLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	link, err := h.links.UpdateLink(c.Request.Context(), ownerID, id, &input)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkResponse(link))
}

// DeleteLink godoc
// @Summary Delete a link
// @Tags links
// @Produce json
// @Param id path int true "Link id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{id} [delete]
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	id, ok := h.linkID(c)
	if !ok {
		return
	}

	if err := h.links.DeleteLink(c.Request.Context(), ownerID, id); err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// GetLinkStats godoc
// @Summary Visit statistics for a link
// @Tags links
// @Produce json
// @Param id path int true "Link id"
// @Success 200 {object} models.VisitStats
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{id}/stats [get]
func (h *LinkHandler) GetLinkStats(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	id, ok := h.linkID(c)
	if !ok {
		return
	}

	stats, err := h.links.GetLinkStats(c.Request.Context(), ownerID, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Redirect godoc
// @Summary Redirect a slug to its target
// @Description Public: resolves the slug, records the visit, redirects
// @Tags redirect
// @Param slug path string true "Slug"
// @Success 302 {object} nil
// @Failure 404 {object} ErrorResponse
// @Router /{slug} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	slug := c.Param("slug")

	target, err := h.redirects.ResolveAndRecord(c.Request.Context(), slug, c.ClientIP())
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "No link for this slug",
			})
			return
		}
		h.logger.Error("Redirect failed", zap.String("slug", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Could not resolve this slug",
		})
		return
	}

	c.Redirect(http.StatusFound, target)
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
