package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/service"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
	"github.com/hostelhub/hostel-adm-api/pkg/response"
)

// HostelHandler exposes hostel endpoints.
type HostelHandler struct {
	hostels *service.HostelService
}

// NewHostelHandler constructs HostelHandler.
func NewHostelHandler(hostels *service.HostelService) *HostelHandler {
	return &HostelHandler{hostels: hostels}
}

// List godoc
// @Summary List hostels with derived occupancy
// @Tags Hostels
// @Produce json
// @Param search query string false "Search by name"
// @Param type query string false "Filter by type"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /hostels [get]
func (h *HostelHandler) List(c *gin.Context) {
	var filter models.HostelFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Type = models.HostelType(c.Query("type"))
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}
	filter.Page, filter.PageSize = pageQuery(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	hostels, pagination, err := h.hostels.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hostels, pagination)
}

// Get godoc
// @Summary Get hostel with occupancy summary
// @Tags Hostels
// @Produce json
// @Param id path string true "Hostel ID"
// @Success 200 {object} response.Envelope
// @Router /hostels/{id} [get]
func (h *HostelHandler) Get(c *gin.Context) {
	hostel, err := h.hostels.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hostel, nil)
}

// Create godoc
// @Summary Create a hostel
// @Tags Hostels
// @Accept json
// @Produce json
// @Param payload body service.CreateHostelRequest true "Hostel payload"
// @Success 201 {object} response.Envelope
// @Router /hostels [post]
func (h *HostelHandler) Create(c *gin.Context) {
	var req service.CreateHostelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	hostel, err := h.hostels.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hostel)
}

// Update godoc
// @Summary Update hostel attributes
// @Tags Hostels
// @Accept json
// @Produce json
// @Param id path string true "Hostel ID"
// @Param payload body service.UpdateHostelRequest true "Hostel payload"
// @Success 200 {object} response.Envelope
// @Router /hostels/{id} [put]
func (h *HostelHandler) Update(c *gin.Context) {
	var req service.UpdateHostelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	hostel, err := h.hostels.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hostel, nil)
}

// AssignWarden godoc
// @Summary Assign or clear the hostel warden
// @Tags Hostels
// @Accept json
// @Produce json
// @Param id path string true "Hostel ID"
// @Param payload body object{warden_id=string} true "Warden user ID, null to clear"
// @Success 204
// @Router /hostels/{id}/warden [put]
func (h *HostelHandler) AssignWarden(c *gin.Context) {
	var payload struct {
		WardenID *string `json:"warden_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.hostels.AssignWarden(c.Request.Context(), c.Param("id"), payload.WardenID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate a hostel
// @Tags Hostels
// @Produce json
// @Param id path string true "Hostel ID"
// @Success 204
// @Router /hostels/{id} [delete]
func (h *HostelHandler) Deactivate(c *gin.Context) {
	if err := h.hostels.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
