package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/service"
	appErrors "github.com/hostelhub/hostel-adm-api/pkg/errors"
	"github.com/hostelhub/hostel-adm-api/pkg/response"
)

// ComplaintHandler exposes complaint endpoints.
type ComplaintHandler struct {
	complaints *service.ComplaintService
}

// NewComplaintHandler constructs ComplaintHandler.
func NewComplaintHandler(complaints *service.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints}
}

// List godoc
// @Summary List complaints
// @Tags Complaints
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param hostelId query string false "Filter by hostel"
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	var filter models.ComplaintFilter
	filter.StudentID = c.Query("studentId")
	filter.HostelID = c.Query("hostelId")
	filter.Status = models.ComplaintStatus(c.Query("status"))
	filter.Category = models.ComplaintCategory(c.Query("category"))
	filter.Page, filter.PageSize = pageQuery(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	complaints, pagination, err := h.complaints.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaints, pagination)
}

// Get godoc
// @Summary Get complaint detail
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	complaint, err := h.complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaint, nil)
}

// File godoc
// @Summary File a complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body service.FileComplaintRequest true "Complaint payload"
// @Success 201 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) File(c *gin.Context) {
	var req service.FileComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	complaint, err := h.complaints.File(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, complaint)
}

// Update godoc
// @Summary Move a complaint through triage
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body service.UpdateComplaintRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id} [patch]
func (h *ComplaintHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	complaint, err := h.complaints.Update(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaint, nil)
}
