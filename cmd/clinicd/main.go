package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/clinic-manager/internal/application"
	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/config"
	httptransport "github.com/example/clinic-manager/internal/http"
	"github.com/example/clinic-manager/internal/logging"
	"github.com/example/clinic-manager/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger("info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	patientRepo := sqlite.NewPatientRepository(pool)
	professionalRepo := sqlite.NewProfessionalRepository(pool)
	appointmentRepo := sqlite.NewAppointmentRepository(pool)
	attendanceRepo := sqlite.NewAttendanceRepository(pool)
	paymentRepo := sqlite.NewPaymentRepository(pool)
	subscriptionRepo := sqlite.NewSubscriptionRepository(pool)

	plans := application.NewPlanResolver(subscriptionRepo)
	usage := usageCounters{patients: patientRepo, professionals: professionalRepo, appointments: appointmentRepo}

	patientService := application.NewPatientService(patientRepo, plans, idGenerator, now, logger)
	professionalService := application.NewProfessionalService(professionalRepo, plans, idGenerator, now, logger)
	appointmentService := application.NewAppointmentService(appointmentRepo, plans, idGenerator, now, logger)
	attendanceService := application.NewAttendanceService(attendanceRepo, paymentRepo, appointmentRepo, idGenerator, now, logger)
	subscriptionService := application.NewSubscriptionService(subscriptionRepo, usage, cfg.TenantTimezone, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Patients:      httptransport.NewPatientHandler(patientService, logger),
		Professionals: httptransport.NewProfessionalHandler(professionalService, logger),
		Appointments:  httptransport.NewAppointmentHandler(appointmentService, logger),
		Attendance:    httptransport.NewAttendanceHandler(attendanceService, logger),
		Subscriptions: httptransport.NewSubscriptionHandler(subscriptionService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireTenant(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("clinic API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// usageCounters stitches the per-resource count queries into the single
// interface the subscription service consumes.
type usageCounters struct {
	patients      *sqlite.PatientRepository
	professionals *sqlite.ProfessionalRepository
	appointments  *sqlite.AppointmentRepository
}

func (u usageCounters) CountPatients(ctx context.Context, tenantID string) (int, error) {
	return u.patients.CountPatients(ctx, tenantID)
}

func (u usageCounters) CountProfessionals(ctx context.Context, tenantID string) (int, error) {
	return u.professionals.CountProfessionals(ctx, tenantID)
}

func (u usageCounters) CountInMonth(ctx context.Context, tenantID string, ref calendar.Date) (int, error) {
	return u.appointments.CountInMonth(ctx, tenantID, ref)
}
