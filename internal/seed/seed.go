// Package seed populates the in-memory stores with demo accounts and
// availability for local development.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/service"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/config"
)

// DemoPassword is the shared password of every seeded account.
const DemoPassword = "demo-pass"

var subjects = []string{
	"Calculus",
	"Linear Algebra",
	"Data Structures",
	"Operating Systems",
	"Databases",
	"Statistics",
	"Computer Networks",
	"Software Engineering",
}

// Result reports what was created.
type Result struct {
	Professors []*models.User
	Counselors []*models.User
	Students   []*models.User
	SlotCount  int
}

// Run registers demo professors, counselors and students and fills every
// staff member's next two days with hourly slots. Counts of zero fall back to
// small defaults.
func Run(ctx context.Context, cfg config.DemoConfig, users *service.UserService, consultations *service.ConsultationService, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Professors <= 0 {
		cfg.Professors = 3
	}
	if cfg.Counselors <= 0 {
		cfg.Counselors = 1
	}
	if cfg.Students <= 0 {
		cfg.Students = 10
	}

	gofakeit.Seed(time.Now().UnixNano())
	res := &Result{}

	for i := 0; i < cfg.Professors; i++ {
		subject := subjects[gofakeit.Number(0, len(subjects)-1)]
		u, err := register(ctx, users, models.RoleProfessor, subject, i)
		if err != nil {
			return nil, err
		}
		res.Professors = append(res.Professors, u)
	}
	for i := 0; i < cfg.Counselors; i++ {
		u, err := register(ctx, users, models.RoleCounselor, "", i)
		if err != nil {
			return nil, err
		}
		res.Counselors = append(res.Counselors, u)
	}
	// Students register last so auto-enrollment picks up every professor's
	// subject.
	for i := 0; i < cfg.Students; i++ {
		u, err := register(ctx, users, models.RoleStudent, "", i)
		if err != nil {
			return nil, err
		}
		res.Students = append(res.Students, u)
	}

	staff := append(append([]*models.User{}, res.Professors...), res.Counselors...)
	for _, member := range staff {
		n, err := fillSchedule(ctx, consultations, member.ID)
		if err != nil {
			return nil, err
		}
		res.SlotCount += n
	}

	logger.Info("demo data seeded",
		zap.Int("professors", len(res.Professors)),
		zap.Int("counselors", len(res.Counselors)),
		zap.Int("students", len(res.Students)),
		zap.Int("slots", res.SlotCount))
	return res, nil
}

func register(ctx context.Context, users *service.UserService, role models.Role, subject string, i int) (*models.User, error) {
	name := gofakeit.Name()
	username := fmt.Sprintf("%s%d-%s", strings.ToLower(string(role[:1])), i, gofakeit.Username())
	u, err := users.Register(ctx, service.RegisterRequest{
		Username: username,
		Password: DemoPassword,
		FullName: name,
		Email:    gofakeit.Email(),
		Role:     role,
		Subject:  subject,
	})
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", role, err)
	}
	return u, nil
}

// fillSchedule adds hourly slots from 09:00 to 17:00 for tomorrow and the day
// after.
func fillSchedule(ctx context.Context, consultations *service.ConsultationService, staffID string) (int, error) {
	count := 0
	base := time.Now().Add(24 * time.Hour)
	day := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, base.Location())
	for d := 0; d < 2; d++ {
		for hour := 9; hour < 17; hour++ {
			start := day.AddDate(0, 0, d).Add(time.Duration(hour) * time.Hour)
			if _, err := consultations.AddAvailability(ctx, staffID, start, start.Add(time.Hour)); err != nil {
				return count, fmt.Errorf("seed slot for %s: %w", staffID, err)
			}
			count++
		}
	}
	return count, nil
}
