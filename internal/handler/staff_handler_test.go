package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
)

func staffParam(id string) gin.Params {
	return gin.Params{{Key: "id", Value: id}}
}

func TestStartNextHandler(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)
	a := f.bookFor(t, f.student)

	// Staff members cannot drive another member's queue.
	c, w := request(t, http.MethodPost, "/staff/prof-1/queue/next", nil, f.claimsFor(f.student), staffParam(f.professor.ID))
	h.StartNext(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = request(t, http.MethodPost, "/staff/prof-1/queue/next", nil, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.StartNext(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusInProgress, a.Status)
}

func TestStartNextHandlerEmptyQueue(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)

	c, w := request(t, http.MethodPost, "/staff/prof-1/queue/next", nil, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.StartNext(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Data["started"])
}

func TestQueueStatusHandler(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)
	f.bookFor(t, f.student)

	c, w := request(t, http.MethodGet, "/staff/prof-1/queue", nil, f.claimsFor(f.student), staffParam(f.professor.ID))
	h.QueueStatus(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = request(t, http.MethodGet, "/staff/ghost/queue", nil, f.claimsFor(f.student), staffParam("ghost"))
	h.QueueStatus(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddAndRemoveSlotHandler(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)

	slot := SlotRequest{Start: handlerDay.Add(14 * time.Hour), End: handlerDay.Add(15 * time.Hour)}
	c, w := request(t, http.MethodPost, "/staff/prof-1/slots", slot, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.AddSlot(c)
	require.Equal(t, http.StatusCreated, w.Code)

	// Overlapping interval is rejected.
	overlap := SlotRequest{Start: handlerDay.Add(14*time.Hour + 30*time.Minute), End: handlerDay.Add(16 * time.Hour)}
	c, w = request(t, http.MethodPost, "/staff/prof-1/slots", overlap, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.AddSlot(c)
	require.Equal(t, http.StatusConflict, w.Code)

	c, w = request(t, http.MethodDelete, "/staff/prof-1/slots", slot, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.RemoveSlot(c)
	require.Equal(t, http.StatusNoContent, w.Code)

	c, w = request(t, http.MethodDelete, "/staff/prof-1/slots", slot, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.RemoveSlot(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddSlotHandlerRequiresSelf(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)

	slot := SlotRequest{Start: handlerDay.Add(14 * time.Hour), End: handlerDay.Add(15 * time.Hour)}
	c, w := request(t, http.MethodPost, "/staff/prof-1/slots", slot, f.claimsFor(f.outsider), staffParam(f.professor.ID))
	h.AddSlot(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestListSlotsHandlerDateValidation(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)

	c, w := request(t, http.MethodGet, "/staff/prof-1/slots", nil, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.ListSlots(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = request(t, http.MethodGet, "/staff/prof-1/slots?date=02-09-2026", nil, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.ListSlots(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = request(t, http.MethodGet, "/staff/prof-1/slots?date=2026-09-02", nil, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.ListSlots(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 1)
}

func TestSetSlotAvailabilityHandler(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)

	body := SlotAvailabilityRequest{
		Start:     handlerDay.Add(9 * time.Hour),
		End:       handlerDay.Add(10 * time.Hour),
		Available: false,
	}
	c, w := request(t, http.MethodPut, "/staff/prof-1/slots/availability", body, f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.SetSlotAvailability(c)
	require.Equal(t, http.StatusNoContent, w.Code)

	// The blocked slot no longer accepts bookings.
	open := f.consultations.ListAvailableSlots(f.professor.ID, handlerDay)
	assert.Empty(t, open)
}

func TestExportScheduleHandler(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)
	f.bookFor(t, f.student)

	c, w := request(t, http.MethodGet, "/staff/prof-1/slots/export?date=2026-09-02&format=csv", nil,
		f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.ExportSchedule(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, w.Body.String(), "booked")

	c, w = request(t, http.MethodGet, "/staff/prof-1/slots/export?date=2026-09-02&format=doc", nil,
		f.claimsFor(f.professor), staffParam(f.professor.ID))
	h.ExportSchedule(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadExportHandlerInvalidToken(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)

	c, w := request(t, http.MethodGet, "/downloads/bogus", nil, nil, gin.Params{{Key: "token", Value: "bogus"}})
	h.DownloadExport(c)
	assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
}

func TestListAvailableSlotsExcludesBooked(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewStaffHandler(f.consultations)

	_, err := f.consultations.AddAvailability(context.Background(), f.professor.ID,
		handlerDay.Add(11*time.Hour), handlerDay.Add(12*time.Hour))
	require.NoError(t, err)
	f.bookFor(t, f.student) // takes the 09:00 slot

	c, w := request(t, http.MethodGet, "/staff/prof-1/slots/available?date=2026-09-02", nil,
		f.claimsFor(f.student), staffParam(f.professor.ID))
	h.ListAvailableSlots(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []struct {
			Start time.Time `json:"start"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, handlerDay.Add(11*time.Hour), envelope.Data[0].Start.UTC())
}
