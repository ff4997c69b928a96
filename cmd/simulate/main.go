// Command simulate runs an in-process booking scenario against the scheduling
// engine and prints the resulting queues and calendars. Useful for demoing
// the priority rotation without standing up the HTTP server.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/repository"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/seed"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/service"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/config"
)

func main() {
	students := flag.Int("students", 5, "number of demo students")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulation starting")

	logr := zap.NewNop()
	ctx := context.Background()

	userRepo := repository.NewUserRepository()
	slotRepo := repository.NewSlotRepository(time.Minute, time.Now)
	appointmentRepo := repository.NewAppointmentRepository()
	queueRepo := repository.NewQueueRepository()
	notificationRepo := repository.NewNotificationRepository()

	notificationSvc := service.NewNotificationService(notificationRepo, nil, logr, time.Now)
	userSvc := service.NewUserService(userRepo, nil, logr)
	consultationSvc := service.NewConsultationService(service.ConsultationServiceParams{
		Users:    userRepo,
		Slots:    slotRepo,
		Registry: appointmentRepo,
		Queues:   queueRepo,
		Notifier: notificationSvc,
		Logger:   logr,
	})

	demo, err := seed.Run(ctx, config.DemoConfig{Professors: 1, Students: *students}, userSvc, consultationSvc, logr)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	professor := demo.Professors[0]
	log.Printf("professor %s teaches %v with %d slots", professor.FullName, professor.Subjects, demo.SlotCount)

	var lastID int
	for _, student := range demo.Students {
		a, err := consultationSvc.BookAppointment(ctx, service.BookAppointmentRequest{
			StudentID:       student.ID,
			StaffID:         professor.ID,
			Subject:         professor.Subjects[0],
			DurationMinutes: 30,
		})
		if err != nil {
			log.Fatalf("book for %s: %v", student.Username, err)
		}
		log.Printf("appointment %d booked for %s at %s", a.ID, student.Username, a.ScheduledAt.Format(time.RFC3339))
		lastID = a.ID
	}

	log.Printf("promoting the last booking, appointment %d", lastID)
	if err := consultationSvc.SetPriority(ctx, lastID, true); err != nil {
		log.Fatalf("promote: %v", err)
	}
	promoted, err := consultationSvc.Appointment(lastID)
	if err != nil {
		log.Fatalf("reload: %v", err)
	}
	log.Printf("appointment %d now scheduled at %s", promoted.ID, promoted.ScheduledAt.Format(time.RFC3339))

	next, err := consultationSvc.StartNext(ctx, professor.ID)
	if err != nil {
		log.Fatalf("start next: %v", err)
	}
	if next == nil {
		log.Fatal("queue unexpectedly empty")
	}
	log.Printf("started appointment %d (priority=%t)", next.ID, next.Priority)
	if next.ID != lastID {
		log.Fatalf("expected promoted appointment %d at the queue head, got %d", lastID, next.ID)
	}

	if err := consultationSvc.Complete(ctx, next.ID); err != nil {
		log.Fatalf("complete: %v", err)
	}
	log.Printf("completed appointment %d", next.ID)

	status, err := consultationSvc.GetQueueStatus(ctx, professor.ID)
	if err != nil {
		log.Fatalf("queue status: %v", err)
	}
	log.Printf("queue now holds %d appointments, estimated wait %d minutes", status.Size, status.EstimatedWaitMinutes)
	log.Println("simulation complete")
}
