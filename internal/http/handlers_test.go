package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/clinic-manager/internal/application"
	"github.com/example/clinic-manager/internal/calendar"
	"github.com/example/clinic-manager/internal/catalog"
	"github.com/example/clinic-manager/internal/persistence"
)

type stubAppointmentService struct {
	createResult application.ScheduleResult
	createErr    error
	gotTenant    string
	gotInput     application.AppointmentInput
	listParams   application.ListAppointmentsParams
	appointments []persistence.Appointment
}

func (s *stubAppointmentService) CreateAppointment(_ context.Context, tenantID string, input application.AppointmentInput) (application.ScheduleResult, error) {
	s.gotTenant = tenantID
	s.gotInput = input
	return s.createResult, s.createErr
}

func (s *stubAppointmentService) UpdateAppointmentStatus(_ context.Context, _, _ string, _ persistence.AppointmentStatus) error {
	return nil
}

func (s *stubAppointmentService) GetAppointment(_ context.Context, _, _ string) (persistence.Appointment, error) {
	if len(s.appointments) == 0 {
		return persistence.Appointment{}, application.ErrNotFound
	}
	return s.appointments[0], nil
}

func (s *stubAppointmentService) DeleteAppointment(_ context.Context, _, _ string) error {
	return nil
}

func (s *stubAppointmentService) ListAppointments(_ context.Context, _ string, params application.ListAppointmentsParams) ([]persistence.Appointment, error) {
	s.listParams = params
	return s.appointments, nil
}

type stubPatientService struct {
	patient persistence.Patient
	err     error
}

func (s *stubPatientService) CreatePatient(_ context.Context, _ string, _ application.PatientInput) (persistence.Patient, error) {
	return s.patient, s.err
}

func (s *stubPatientService) UpdatePatient(_ context.Context, _, _ string, _ application.PatientInput) (persistence.Patient, error) {
	return s.patient, s.err
}

func (s *stubPatientService) GetPatient(_ context.Context, _, _ string) (persistence.Patient, error) {
	return s.patient, s.err
}

func (s *stubPatientService) ListPatients(_ context.Context, _ string) ([]persistence.Patient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []persistence.Patient{s.patient}, nil
}

func (s *stubPatientService) DeletePatient(_ context.Context, _, _ string) error {
	return s.err
}

type stubAttendanceService struct {
	record    persistence.AttendanceRecord
	recordErr error
	stats     application.PatientStats
	gotInput  application.AttendanceInput
}

func (s *stubAttendanceService) RecordAttendance(_ context.Context, _ string, input application.AttendanceInput) (persistence.AttendanceRecord, error) {
	s.gotInput = input
	return s.record, s.recordErr
}

func (s *stubAttendanceService) ListAttendance(_ context.Context, _, _ string) ([]persistence.AttendanceRecord, error) {
	return []persistence.AttendanceRecord{s.record}, nil
}

func (s *stubAttendanceService) PatientStats(_ context.Context, _, _ string) (application.PatientStats, error) {
	return s.stats, nil
}

type stubSubscriptionService struct {
	subscription persistence.Subscription
	err          error
	plan         catalog.Plan
	planActive   bool
	usage        application.UsageSummary
}

func (s *stubSubscriptionService) ApplyCheckoutCompletion(_ context.Context, _ application.CheckoutCompletion) (persistence.Subscription, error) {
	return s.subscription, s.err
}

func (s *stubSubscriptionService) Cancel(_ context.Context, _ string) (persistence.Subscription, error) {
	return s.subscription, s.err
}

func (s *stubSubscriptionService) Reactivate(_ context.Context, _ string) (persistence.Subscription, error) {
	return s.subscription, s.err
}

func (s *stubSubscriptionService) CurrentPlan(_ context.Context, _ string) (catalog.Plan, bool, error) {
	return s.plan, s.planActive, s.err
}

func (s *stubSubscriptionService) Usage(_ context.Context, _ string) (application.UsageSummary, error) {
	return s.usage, s.err
}

func testRouter(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	cfg.Middleware = append([]func(http.Handler) http.Handler{RequireTenant(nil)}, cfg.Middleware...)
	return NewRouter(cfg)
}

func doJSON(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(TenantHeader, "tenant1")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func httpDate(t *testing.T, value string) calendar.Date {
	t.Helper()
	date, err := calendar.ParseDate(value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return date
}

func sampleAppointment(t *testing.T, id string) persistence.Appointment {
	t.Helper()
	start, err := calendar.ParseTimeOfDay("10:00")
	if err != nil {
		t.Fatalf("bad time: %v", err)
	}
	return persistence.Appointment{
		ID:              id,
		TenantID:        "tenant1",
		PatientID:       "pat1",
		ProfessionalID:  "prof1",
		Date:            httpDate(t, "2026-03-02"),
		StartTime:       start,
		DurationMinutes: 50,
		Status:          persistence.AppointmentScheduled,
		CreatedAt:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestRequireTenant(t *testing.T) {
	var seenTenant string
	handler := RequireTenant(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTenant, _ = TenantIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("rejects requests without the tenant header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/patients", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", recorder.Code)
		}
	})

	t.Run("injects the tenant into context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/patients", nil)
		req.Header.Set(TenantHeader, "tenant42")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", recorder.Code)
		}
		if seenTenant != "tenant42" {
			t.Errorf("Expected tenant42 in context, got %q", seenTenant)
		}
	})
}

func TestAppointmentHandler_Create(t *testing.T) {
	t.Run("full success returns 201 with every created instance", func(t *testing.T) {
		service := &stubAppointmentService{
			createResult: application.ScheduleResult{
				Created: []persistence.Appointment{sampleAppointment(t, "appt1"), sampleAppointment(t, "appt2")},
			},
		}
		router := testRouter(t, RouterConfig{Appointments: NewAppointmentHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodPost, "/appointments", `{
			"patient_id": "pat1",
			"professional_id": "prof1",
			"date": "2026-03-02",
			"start_time": "10:00",
			"duration_minutes": 50,
			"recurrence": {"type": "weekly", "weekdays": ["monday"], "count": 2}
		}`)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}
		var resp scheduleResponse
		decodeBody(t, recorder, &resp)
		if len(resp.Created) != 2 || len(resp.Rejected) != 0 {
			t.Errorf("Expected 2 created and 0 rejected, got %d/%d", len(resp.Created), len(resp.Rejected))
		}
		if service.gotTenant != "tenant1" {
			t.Errorf("Expected tenant1, got %q", service.gotTenant)
		}
		if service.gotInput.Recurrence.Weekdays[0] != time.Monday {
			t.Errorf("Expected Monday, got %v", service.gotInput.Recurrence.Weekdays)
		}
	})

	t.Run("partial outcome returns 207 with both lists", func(t *testing.T) {
		created := []persistence.Appointment{sampleAppointment(t, "appt1")}
		rejected := []persistence.RejectedAppointment{{
			Appointment: sampleAppointment(t, "appt2"),
			Reason:      persistence.RejectQuota,
		}}
		service := &stubAppointmentService{
			createErr: &application.PartialBatchError{Created: created, Rejected: rejected},
		}
		router := testRouter(t, RouterConfig{Appointments: NewAppointmentHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodPost, "/appointments", `{
			"patient_id": "pat1", "professional_id": "prof1",
			"date": "2026-03-02", "start_time": "10:00", "duration_minutes": 50
		}`)

		if recorder.Code != http.StatusMultiStatus {
			t.Fatalf("Expected 207, got %d", recorder.Code)
		}
		var resp scheduleResponse
		decodeBody(t, recorder, &resp)
		if len(resp.Created) != 1 || len(resp.Rejected) != 1 {
			t.Fatalf("Expected 1 created and 1 rejected, got %d/%d", len(resp.Created), len(resp.Rejected))
		}
		if resp.Rejected[0].Reason != string(persistence.RejectQuota) {
			t.Errorf("Expected quota reason, got %q", resp.Rejected[0].Reason)
		}
	})

	t.Run("quota denial returns 422 with the plan ceiling", func(t *testing.T) {
		service := &stubAppointmentService{
			createErr: &application.QuotaError{
				Resource:     catalog.ResourceAppointmentsPerMonth,
				Limit:        catalog.LimitOf(50),
				CurrentCount: 50,
			},
		}
		router := testRouter(t, RouterConfig{Appointments: NewAppointmentHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodPost, "/appointments", `{
			"patient_id": "pat1", "professional_id": "prof1",
			"date": "2026-03-02", "start_time": "10:00", "duration_minutes": 50
		}`)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d", recorder.Code)
		}
		var resp errorResponse
		decodeBody(t, recorder, &resp)
		if resp.ErrorCode != "QUOTA_EXCEEDED" {
			t.Errorf("Expected QUOTA_EXCEEDED, got %q", resp.ErrorCode)
		}
		if resp.Quota == nil || resp.Quota.Limit == nil || *resp.Quota.Limit != 50 || resp.Quota.Used != 50 {
			t.Errorf("Unexpected quota payload: %+v", resp.Quota)
		}
	})

	t.Run("malformed date is rejected before the service runs", func(t *testing.T) {
		service := &stubAppointmentService{}
		router := testRouter(t, RouterConfig{Appointments: NewAppointmentHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodPost, "/appointments", `{
			"patient_id": "pat1", "professional_id": "prof1",
			"date": "03/02/2026", "start_time": "10:00", "duration_minutes": 50
		}`)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d", recorder.Code)
		}
		var resp errorResponse
		decodeBody(t, recorder, &resp)
		if _, ok := resp.Errors["date"]; !ok {
			t.Errorf("Expected a date field error, got %v", resp.Errors)
		}
		if service.gotTenant != "" {
			t.Error("Service should not have been called")
		}
	})
}

func TestAppointmentHandler_List(t *testing.T) {
	service := &stubAppointmentService{appointments: []persistence.Appointment{sampleAppointment(t, "appt1")}}
	router := testRouter(t, RouterConfig{Appointments: NewAppointmentHandler(service, nil)})

	recorder := doJSON(t, router, http.MethodGet, "/appointments?period=week&reference=2026-03-04&professional_id=prof1", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	if service.listParams.Period != application.PeriodWeek {
		t.Errorf("Expected week period, got %q", service.listParams.Period)
	}
	if service.listParams.Reference != httpDate(t, "2026-03-04") {
		t.Errorf("Unexpected reference date: %v", service.listParams.Reference)
	}
	if service.listParams.ProfessionalID != "prof1" {
		t.Errorf("Unexpected professional filter: %q", service.listParams.ProfessionalID)
	}

	var resp listAppointmentsResponse
	decodeBody(t, recorder, &resp)
	if len(resp.Appointments) != 1 || resp.Appointments[0].Date != "2026-03-02" {
		t.Errorf("Unexpected list payload: %+v", resp.Appointments)
	}
}

func TestPatientHandler_ErrorMapping(t *testing.T) {
	t.Run("not found maps to 404", func(t *testing.T) {
		router := testRouter(t, RouterConfig{Patients: NewPatientHandler(&stubPatientService{err: application.ErrNotFound}, nil)})
		recorder := doJSON(t, router, http.MethodGet, "/patients/missing", "")
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", recorder.Code)
		}
	})

	t.Run("quota denial maps to 422 with the limit", func(t *testing.T) {
		router := testRouter(t, RouterConfig{Patients: NewPatientHandler(&stubPatientService{err: &application.QuotaError{
			Resource:     catalog.ResourcePatients,
			Limit:        catalog.LimitOf(75),
			CurrentCount: 75,
		}}, nil)})
		recorder := doJSON(t, router, http.MethodPost, "/patients", `{"name": "Maria"}`)
		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d", recorder.Code)
		}
		var resp errorResponse
		decodeBody(t, recorder, &resp)
		if resp.Quota == nil || resp.Quota.Resource != "patients" {
			t.Errorf("Unexpected quota payload: %+v", resp.Quota)
		}
	})

	t.Run("validation errors map to 422 with field details", func(t *testing.T) {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
		router := testRouter(t, RouterConfig{Patients: NewPatientHandler(&stubPatientService{err: vErr}, nil)})
		recorder := doJSON(t, router, http.MethodPost, "/patients", `{}`)
		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d", recorder.Code)
		}
		var resp errorResponse
		decodeBody(t, recorder, &resp)
		if resp.Errors["name"] != "name is required" {
			t.Errorf("Unexpected field errors: %v", resp.Errors)
		}
	})
}

func TestAttendanceHandler(t *testing.T) {
	t.Run("records attendance with a payment", func(t *testing.T) {
		paymentID := "pay1"
		service := &stubAttendanceService{record: persistence.AttendanceRecord{
			ID:          "att1",
			TenantID:    "tenant1",
			PatientID:   "pat1",
			SessionDate: httpDate(t, "2026-03-02"),
			Status:      persistence.AttendancePresent,
			PaymentID:   &paymentID,
		}}
		router := testRouter(t, RouterConfig{Attendance: NewAttendanceHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodPost, "/attendance", `{
			"patient_id": "pat1",
			"session_date": "2026-03-02",
			"status": "present",
			"payment": {"amount_cents": 15000, "discount_cents": 2000, "method": "pix"}
		}`)

		if recorder.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if service.gotInput.Payment == nil || service.gotInput.Payment.AmountCents != 15000 {
			t.Errorf("Unexpected payment input: %+v", service.gotInput.Payment)
		}
		var resp attendanceResponse
		decodeBody(t, recorder, &resp)
		if resp.Record.PaymentID == nil || *resp.Record.PaymentID != "pay1" {
			t.Errorf("Expected linked payment in response, got %+v", resp.Record)
		}
	})

	t.Run("no session on the date maps to 422", func(t *testing.T) {
		service := &stubAttendanceService{recordErr: application.ErrInvalidDate}
		router := testRouter(t, RouterConfig{Attendance: NewAttendanceHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodPost, "/attendance", `{
			"patient_id": "pat1", "session_date": "2026-03-03", "status": "present"
		}`)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d", recorder.Code)
		}
		var resp errorResponse
		decodeBody(t, recorder, &resp)
		if resp.ErrorCode != "NO_SESSION_ON_DATE" {
			t.Errorf("Expected NO_SESSION_ON_DATE, got %q", resp.ErrorCode)
		}
	})

	t.Run("serves history and stats under the patient path", func(t *testing.T) {
		service := &stubAttendanceService{
			record: persistence.AttendanceRecord{ID: "att1", PatientID: "pat1", SessionDate: httpDate(t, "2026-03-02"), Status: persistence.AttendancePresent},
			stats:  application.PatientStats{TotalSessions: 5, PresentCount: 2, Absences: 2, PaidCount: 1, AttendanceRate: 40},
		}
		router := testRouter(t, RouterConfig{
			Patients:   NewPatientHandler(&stubPatientService{}, nil),
			Attendance: NewAttendanceHandler(service, nil),
		})

		recorder := doJSON(t, router, http.MethodGet, "/patients/pat1/attendance", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("Expected 200 for history, got %d", recorder.Code)
		}
		var history attendanceHistoryResponse
		decodeBody(t, recorder, &history)
		if len(history.Records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(history.Records))
		}

		recorder = doJSON(t, router, http.MethodGet, "/patients/pat1/stats", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("Expected 200 for stats, got %d", recorder.Code)
		}
		var stats patientStatsDTO
		decodeBody(t, recorder, &stats)
		if stats.AttendanceRate != 40 || stats.PaidCount != 1 {
			t.Errorf("Unexpected stats payload: %+v", stats)
		}
	})
}

func TestSubscriptionHandler(t *testing.T) {
	periodEnd := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	t.Run("checkout completion returns the stored subscription", func(t *testing.T) {
		service := &stubSubscriptionService{subscription: persistence.Subscription{
			ID:                 "sub1",
			TenantID:           "tenant1",
			PlanTier:           "premium",
			Status:             persistence.SubscriptionActive,
			BillingCycle:       persistence.BillingMonthly,
			CurrentPeriodStart: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			CurrentPeriodEnd:   &periodEnd,
		}}
		router := testRouter(t, RouterConfig{Subscriptions: NewSubscriptionHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodPost, "/billing/checkout-completed", `{
			"plan_tier": "premium", "billing_cycle": "monthly"
		}`)

		if recorder.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", recorder.Code)
		}
		var resp subscriptionResponse
		decodeBody(t, recorder, &resp)
		if resp.Subscription.PlanTier != "premium" || resp.Subscription.CurrentPeriodEnd == nil {
			t.Errorf("Unexpected subscription payload: %+v", resp.Subscription)
		}
	})

	t.Run("reactivation after the period lapsed maps to 409", func(t *testing.T) {
		service := &stubSubscriptionService{err: application.ErrNoActiveSubscription}
		router := testRouter(t, RouterConfig{Subscriptions: NewSubscriptionHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodPost, "/subscription/reactivate", "")
		if recorder.Code != http.StatusConflict {
			t.Fatalf("Expected 409, got %d", recorder.Code)
		}
		var resp errorResponse
		decodeBody(t, recorder, &resp)
		if resp.ErrorCode != "NO_ACTIVE_SUBSCRIPTION" {
			t.Errorf("Expected NO_ACTIVE_SUBSCRIPTION, got %q", resp.ErrorCode)
		}
	})

	t.Run("usage reports null limits on the unlimited tier", func(t *testing.T) {
		service := &stubSubscriptionService{usage: application.UsageSummary{
			PlanTier:          "master",
			SubscriptionState: persistence.SubscriptionActive,
			Patients:          application.ResourceUsage{Used: 120},
			Professionals:     application.ResourceUsage{Used: 12},
			AppointmentsMonth: application.ResourceUsage{Used: 600},
		}}
		router := testRouter(t, RouterConfig{Subscriptions: NewSubscriptionHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodGet, "/subscription/usage", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", recorder.Code)
		}
		var resp usageResponse
		decodeBody(t, recorder, &resp)
		if resp.Patients.Limit != nil || resp.Patients.Used != 120 {
			t.Errorf("Unexpected patients row: %+v", resp.Patients)
		}
	})

	t.Run("current plan reports inactive tenants without a plan", func(t *testing.T) {
		service := &stubSubscriptionService{planActive: false}
		router := testRouter(t, RouterConfig{Subscriptions: NewSubscriptionHandler(service, nil)})

		recorder := doJSON(t, router, http.MethodGet, "/subscription", "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", recorder.Code)
		}
		var resp currentPlanResponse
		decodeBody(t, recorder, &resp)
		if resp.Active || resp.Plan != nil {
			t.Errorf("Expected inactive plan payload, got %+v", resp)
		}
	})
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := testRouter(t, RouterConfig{Patients: NewPatientHandler(&stubPatientService{}, nil)})

	recorder := doJSON(t, router, http.MethodDelete, "/patients", "")
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Errorf("Expected Allow header with POST, got %q", allow)
	}
}
