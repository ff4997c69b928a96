package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/middleware"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/service"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/export"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/response"
)

// StaffHandler serves staff-scoped queue and availability endpoints.
type StaffHandler struct {
	consultations *service.ConsultationService
}

// NewStaffHandler creates a new handler.
func NewStaffHandler(consultations *service.ConsultationService) *StaffHandler {
	return &StaffHandler{consultations: consultations}
}

// SlotRequest is the payload identifying or creating a slot interval.
type SlotRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// SlotAvailabilityRequest toggles the administrative availability flag.
type SlotAvailabilityRequest struct {
	Start     time.Time `json:"start" binding:"required"`
	End       time.Time `json:"end" binding:"required"`
	Available bool      `json:"available"`
}

// StartNext godoc
// @Summary Start the next consultation
// @Description Pop the queue head and mark its appointment in progress
// @Tags Staff
// @Produce json
// @Param id path string true "Staff id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /staff/{id}/queue/next [post]
func (h *StaffHandler) StartNext(c *gin.Context) {
	staffID, ok := h.requireSelf(c)
	if !ok {
		return
	}

	appointment, err := h.consultations.StartNext(c.Request.Context(), staffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if appointment == nil {
		response.JSON(c, http.StatusOK, gin.H{"started": false, "message": "queue is empty"})
		return
	}
	response.JSON(c, http.StatusOK, appointment)
}

// QueueStatus godoc
// @Summary Queue status
// @Description Queue length and estimated wait for a staff member
// @Tags Staff
// @Produce json
// @Param id path string true "Staff id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /staff/{id}/queue [get]
func (h *StaffHandler) QueueStatus(c *gin.Context) {
	status, err := h.consultations.GetQueueStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// ListSlots godoc
// @Summary List slots for a day
// @Tags Staff
// @Produce json
// @Param id path string true "Staff id"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /staff/{id}/slots [get]
func (h *StaffHandler) ListSlots(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.consultations.ListSlots(c.Param("id"), date))
}

// ListAvailableSlots godoc
// @Summary List bookable slots for a day
// @Tags Staff
// @Produce json
// @Param id path string true "Staff id"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /staff/{id}/slots/available [get]
func (h *StaffHandler) ListAvailableSlots(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.consultations.ListAvailableSlots(c.Param("id"), date))
}

// AddSlot godoc
// @Summary Add an availability slot
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff id"
// @Param payload body handler.SlotRequest true "Slot interval"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /staff/{id}/slots [post]
func (h *StaffHandler) AddSlot(c *gin.Context) {
	staffID, ok := h.requireSelf(c)
	if !ok {
		return
	}
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}

	slot, err := h.consultations.AddAvailability(c.Request.Context(), staffID, req.Start, req.End)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// RemoveSlot godoc
// @Summary Remove an availability slot
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff id"
// @Param payload body handler.SlotRequest true "Slot interval"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /staff/{id}/slots [delete]
func (h *StaffHandler) RemoveSlot(c *gin.Context) {
	staffID, ok := h.requireSelf(c)
	if !ok {
		return
	}
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}

	ref := models.SlotRef{StaffID: staffID, Start: req.Start.Unix(), End: req.End.Unix()}
	if err := h.consultations.RemoveAvailability(c.Request.Context(), staffID, ref); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetSlotAvailability godoc
// @Summary Toggle a slot's availability flag
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff id"
// @Param payload body handler.SlotAvailabilityRequest true "Slot interval and flag"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /staff/{id}/slots/availability [put]
func (h *StaffHandler) SetSlotAvailability(c *gin.Context) {
	staffID, ok := h.requireSelf(c)
	if !ok {
		return
	}
	var req SlotAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}

	ref := models.SlotRef{StaffID: staffID, Start: req.Start.Unix(), End: req.End.Unix()}
	if err := h.consultations.SetSlotAvailability(c.Request.Context(), staffID, ref, req.Available); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportSchedule godoc
// @Summary Download a day schedule
// @Description Render the staff member's slots for a day as PDF or CSV
// @Tags Staff
// @Produce application/pdf
// @Param id path string true "Staff id"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param format query string false "Export format" Enums(pdf, csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /staff/{id}/slots/export [get]
func (h *StaffHandler) ExportSchedule(c *gin.Context) {
	date, ok := h.parseDate(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	doc, err := h.consultations.ExportSchedule(c.Request.Context(), c.Param("id"), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if doc.DownloadToken != "" {
		c.Header("X-Download-Token", doc.DownloadToken)
	}
	c.Header("Content-Disposition", "attachment; filename="+doc.Filename)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// DownloadExport godoc
// @Summary Download an archived export
// @Description Serve a previously exported schedule via its signed token
// @Tags Staff
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *StaffHandler) DownloadExport(c *gin.Context) {
	doc, err := h.consultations.DownloadExport(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+doc.Filename)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// requireSelf ensures the authenticated staff member only mutates their own
// queue and calendar.
func (h *StaffHandler) requireSelf(c *gin.Context) (string, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	staffID := c.Param("id")
	if claims.UserID != staffID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "staff members can only manage their own schedule"))
		return "", false
	}
	return staffID, true
}

func (h *StaffHandler) parseDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD"))
		return time.Time{}, false
	}
	return date, true
}
