package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/middleware"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/repository"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/service"
)

// handlerDay anchors every handler test on a fixed calendar day with the
// clock reading 08:00.
var handlerDay = time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

type handlerFixture struct {
	users         *repository.UserRepository
	registry      *repository.AppointmentRepository
	queues        *repository.QueueRepository
	consultations *service.ConsultationService

	professor *models.User
	student   *models.User
	outsider  *models.User
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := func() time.Time { return handlerDay.Add(8 * time.Hour) }
	f := &handlerFixture{
		users:    repository.NewUserRepository(),
		registry: repository.NewAppointmentRepository(),
		queues:   repository.NewQueueRepository(),
	}
	notifications := repository.NewNotificationRepository()
	f.consultations = service.NewConsultationService(service.ConsultationServiceParams{
		Users:    f.users,
		Slots:    repository.NewSlotRepository(time.Minute, clock),
		Registry: f.registry,
		Queues:   f.queues,
		Notifier: service.NewNotificationService(notifications, nil, nil, clock),
		Clock:    clock,
	})

	f.professor = &models.User{ID: "prof-1", Username: "prof", FullName: "Prof", Role: models.RoleProfessor, Subjects: []string{"Algebra"}}
	f.student = &models.User{ID: "stu-1", Username: "stu", FullName: "Student", Role: models.RoleStudent, Subjects: []string{"Algebra"}}
	f.outsider = &models.User{ID: "stu-2", Username: "other", FullName: "Other", Role: models.RoleStudent, Subjects: []string{"Algebra"}}
	for _, u := range []*models.User{f.professor, f.student, f.outsider} {
		require.NoError(t, f.users.Create(u))
	}

	_, err := f.consultations.AddAvailability(context.Background(), f.professor.ID,
		handlerDay.Add(9*time.Hour), handlerDay.Add(10*time.Hour))
	require.NoError(t, err)
	return f
}

func (f *handlerFixture) claimsFor(u *models.User) *models.JWTClaims {
	return &models.JWTClaims{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// request builds a test context carrying the given caller, body and path
// parameters.
func request(t *testing.T, method, path string, body interface{}, caller *models.JWTClaims, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	if caller != nil {
		c.Set(middleware.ContextUserKey, caller)
	}
	return c, w
}

func (f *handlerFixture) bookFor(t *testing.T, student *models.User) *models.Appointment {
	t.Helper()
	a, err := f.consultations.BookAppointment(context.Background(), service.BookAppointmentRequest{
		StudentID:       student.ID,
		StaffID:         f.professor.ID,
		Subject:         "Algebra",
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	return a
}

func idParam(id int) gin.Params {
	return gin.Params{{Key: "id", Value: strconv.Itoa(id)}}
}

func TestBookHandlerStudentBooksForSelf(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAppointmentHandler(f.consultations)

	// A student cannot book on someone else's behalf; the claimed
	// identity wins over the payload.
	body := service.BookAppointmentRequest{
		StudentID:       f.outsider.ID,
		StaffID:         f.professor.ID,
		Subject:         "Algebra",
		DurationMinutes: 30,
	}
	c, w := request(t, http.MethodPost, "/appointments", body, f.claimsFor(f.student), nil)
	h.Book(c)

	require.Equal(t, http.StatusCreated, w.Code)
	booked := f.registry.PendingByStaff(f.professor.ID)
	require.Len(t, booked, 1)
	assert.Equal(t, f.student.ID, booked[0].StudentID)
}

func TestBookHandlerInvalidBody(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAppointmentHandler(f.consultations)

	c, w := request(t, http.MethodPost, "/appointments", nil, f.claimsFor(f.student), nil)
	c.Request.Body = http.NoBody
	h.Book(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookHandlerRequiresAuth(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAppointmentHandler(f.consultations)

	c, w := request(t, http.MethodPost, "/appointments", service.BookAppointmentRequest{}, nil, nil)
	h.Book(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCancelHandlerParticipantsOnly(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAppointmentHandler(f.consultations)
	a := f.bookFor(t, f.student)

	c, w := request(t, http.MethodDelete, "/appointments/1", nil, f.claimsFor(f.outsider), idParam(a.ID))
	h.Cancel(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = request(t, http.MethodDelete, "/appointments/1", nil, f.claimsFor(f.student), idParam(a.ID))
	h.Cancel(c)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, f.queues.ForStaff(f.professor.ID).Contains(a.ID))
}

func TestCancelHandlerUnknownAppointment(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAppointmentHandler(f.consultations)

	c, w := request(t, http.MethodDelete, "/appointments/99", nil, f.claimsFor(f.student), idParam(99))
	h.Cancel(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	c, w = request(t, http.MethodDelete, "/appointments/x", nil, f.claimsFor(f.student),
		gin.Params{{Key: "id", Value: "not-a-number"}})
	h.Cancel(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteHandlerAssignedStaffOnly(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAppointmentHandler(f.consultations)
	a := f.bookFor(t, f.student)

	_, err := f.consultations.StartNext(context.Background(), f.professor.ID)
	require.NoError(t, err)

	c, w := request(t, http.MethodPost, "/appointments/1/complete", nil, f.claimsFor(f.student), idParam(a.ID))
	h.Complete(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = request(t, http.MethodPost, "/appointments/1/complete", nil, f.claimsFor(f.professor), idParam(a.ID))
	h.Complete(c)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.StatusCompleted, a.Status)
}

func TestSetPriorityHandler(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAppointmentHandler(f.consultations)
	a := f.bookFor(t, f.student)

	c, w := request(t, http.MethodPut, "/appointments/1/priority", PriorityRequest{Priority: true},
		f.claimsFor(f.student), idParam(a.ID))
	h.SetPriority(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = request(t, http.MethodPut, "/appointments/1/priority", PriorityRequest{Priority: true},
		f.claimsFor(f.professor), idParam(a.ID))
	h.SetPriority(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, a.Priority)
}
