package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/middleware"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/service"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/response"
)

// UserHandler serves user directory and per-user resources.
type UserHandler struct {
	users         *service.UserService
	consultations *service.ConsultationService
	notifications *service.NotificationService
}

// NewUserHandler creates a new handler.
func NewUserHandler(users *service.UserService, consultations *service.ConsultationService, notifications *service.NotificationService) *UserHandler {
	return &UserHandler{users: users, consultations: consultations, notifications: notifications}
}

// List godoc
// @Summary List users
// @Description List registered users, optionally filtered by role
// @Tags Users
// @Produce json
// @Param role query string false "Role filter" Enums(STUDENT, PROFESSOR, COUNSELOR)
// @Param search query string false "Match against username or full name"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter
	if roleParam := c.Query("role"); roleParam != "" {
		role := models.Role(roleParam)
		if !role.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown role filter"))
			return
		}
		filter.Role = &role
	}
	filter.Search = c.Query("search")

	users, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users)
}

// MyAppointments godoc
// @Summary List own appointments
// @Description Appointments where the caller participates, ascending by time
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/appointments [get]
func (h *UserHandler) MyAppointments(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.consultations.AppointmentsForUser(claims.UserID))
}

// MyNotifications godoc
// @Summary List own notifications
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/notifications [get]
func (h *UserHandler) MyNotifications(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.notifications.ListForUser(claims.UserID))
}

// MarkNotificationRead godoc
// @Summary Mark a notification as read
// @Tags Users
// @Produce json
// @Param id path string true "Notification id"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /me/notifications/{id}/read [post]
func (h *UserHandler) MarkNotificationRead(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.notifications.MarkRead(claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
