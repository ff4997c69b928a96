package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/middleware"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/service"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/response"
)

// AppointmentHandler serves the appointment lifecycle endpoints.
type AppointmentHandler struct {
	consultations *service.ConsultationService
}

// NewAppointmentHandler creates a new handler.
func NewAppointmentHandler(consultations *service.ConsultationService) *AppointmentHandler {
	return &AppointmentHandler{consultations: consultations}
}

// PriorityRequest is the payload for changing an appointment's priority class.
type PriorityRequest struct {
	Priority bool `json:"priority"`
}

// Book godoc
// @Summary Book a consultation
// @Description Book the earliest available slot with the chosen staff member
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body service.BookAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	// Students always book for themselves.
	if claims.Role == models.RoleStudent {
		req.StudentID = claims.UserID
	}

	appointment, err := h.consultations.BookAppointment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appointment)
}

// Cancel godoc
// @Summary Cancel an appointment
// @Description Cancel a pending or in-progress appointment and release its slot
// @Tags Appointments
// @Produce json
// @Param id path int true "Appointment id"
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, _, ok := h.loadOwned(c)
	if !ok {
		return
	}

	if err := h.consultations.CancelAppointment(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Complete an appointment
// @Description Mark an in-progress consultation as finished
// @Tags Appointments
// @Produce json
// @Param id path int true "Appointment id"
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/complete [post]
func (h *AppointmentHandler) Complete(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, appointment, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if appointment.StaffID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only the assigned staff member can complete a consultation"))
		return
	}

	if err := h.consultations.Complete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetPriority godoc
// @Summary Change appointment priority
// @Description Promote a pending appointment to high priority, shifting earlier holders back, or demote it
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment id"
// @Param payload body handler.PriorityRequest true "Desired priority"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/priority [put]
func (h *AppointmentHandler) SetPriority(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, appointment, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if appointment.StaffID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only the assigned staff member can change priority"))
		return
	}

	var req PriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid priority payload"))
		return
	}

	if err := h.consultations.SetPriority(c.Request.Context(), id, req.Priority); err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.consultations.Appointment(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated)
}

func (h *AppointmentHandler) loadAppointment(c *gin.Context) (int, *models.Appointment, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "appointment id must be an integer"))
		return 0, nil, false
	}
	appointment, err := h.consultations.Appointment(id)
	if err != nil {
		response.Error(c, err)
		return 0, nil, false
	}
	return id, appointment, true
}

// loadOwned resolves the appointment and verifies the caller participates in
// it as either party.
func (h *AppointmentHandler) loadOwned(c *gin.Context) (int, *models.Appointment, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return 0, nil, false
	}
	id, appointment, ok := h.loadAppointment(c)
	if !ok {
		return 0, nil, false
	}
	if appointment.StudentID != claims.UserID && appointment.StaffID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "appointment belongs to another user"))
		return 0, nil, false
	}
	return id, appointment, true
}
