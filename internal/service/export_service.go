package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/export"
)

// ScheduleExport is a rendered schedule document. DownloadToken is set only
// when an archive and signer are configured.
type ScheduleExport struct {
	Data          []byte
	Filename      string
	ContentType   string
	DownloadToken string
	ExpiresAt     time.Time
}

// ExportSchedule renders a staff member's slot schedule for one day as a
// downloadable document. When an archive is configured, a copy is kept on
// disk and a signed download token is returned alongside the bytes.
func (s *ConsultationService) ExportSchedule(ctx context.Context, staffID string, date time.Time, format export.Format) (*ScheduleExport, error) {
	staff, err := s.users.FindByID(staffID)
	if err != nil {
		return nil, err
	}

	lock := s.staffLock(staffID)
	lock.Lock()
	slots := s.slots.ListByDate(staffID, date)
	rows := make([][]string, 0, len(slots))
	for _, slot := range slots {
		state := "available"
		booking := ""
		switch {
		case slot.Booked():
			state = "booked"
			booking = strconv.Itoa(slot.BookedAppointmentID)
		case !slot.MarkedAvailable:
			state = "blocked"
		}
		rows = append(rows, []string{
			slot.Start.Format("15:04"),
			slot.End.Format("15:04"),
			strconv.Itoa(slot.DurationMinutes()),
			state,
			booking,
		})
	}
	lock.Unlock()

	table := export.Table{
		Title:   fmt.Sprintf("%s schedule %s", staff.FullName, date.Format("2006-01-02")),
		Headers: []string{"Start", "End", "Minutes", "State", "Appointment"},
		Rows:    rows,
	}
	data, err := export.Render(table, format)
	if err != nil {
		return nil, err
	}

	doc := &ScheduleExport{
		Data:        data,
		Filename:    fmt.Sprintf("schedule-%s-%s.%s", staffID, date.Format("2006-01-02"), format),
		ContentType: format.ContentType(),
	}

	if s.archive != nil && s.signer != nil {
		relPath := "schedules/" + doc.Filename
		if _, err := s.archive.Save(relPath, data); err != nil {
			s.logger.Warn("schedule export archiving failed", zap.String("staff_id", staffID), zap.Error(err))
			return doc, nil
		}
		token, expiresAt, err := s.signer.Sign(staffID, relPath)
		if err != nil {
			s.logger.Warn("schedule export token signing failed", zap.String("staff_id", staffID), zap.Error(err))
			return doc, nil
		}
		doc.DownloadToken = token
		doc.ExpiresAt = expiresAt
	}
	return doc, nil
}

// DownloadExport resolves a signed token to a previously archived document.
func (s *ConsultationService) DownloadExport(ctx context.Context, token string) (*ScheduleExport, error) {
	if s.archive == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export downloads are not enabled")
	}
	_, relPath, _, err := s.signer.Verify(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	data, err := s.archive.Read(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export no longer available")
	}

	contentType := export.FormatPDF.ContentType()
	if strings.HasSuffix(relPath, ".csv") {
		contentType = export.FormatCSV.ContentType()
	}
	return &ScheduleExport{
		Data:        data,
		Filename:    relPath[strings.LastIndex(relPath, "/")+1:],
		ContentType: contentType,
	}, nil
}
