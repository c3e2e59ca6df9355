package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Patients      *PatientHandler
	Professionals *ProfessionalHandler
	Appointments  *AppointmentHandler
	Attendance    *AttendanceHandler
	Subscriptions *SubscriptionHandler
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Patients != nil {
		mux.HandleFunc("/patients", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Patients.List(w, r)
			case http.MethodPost:
				cfg.Patients.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/patients/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/patients/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			id, sub, _ := strings.Cut(rest, "/")
			ctx := ContextWithPatientID(r.Context(), id)
			r = r.WithContext(ctx)

			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Patients.Get(w, r)
				case http.MethodPut:
					cfg.Patients.Update(w, r)
				case http.MethodDelete:
					cfg.Patients.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "attendance":
				if cfg.Attendance == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Attendance.History(w, r)
			case "stats":
				if cfg.Attendance == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Attendance.Stats(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Professionals != nil {
		mux.HandleFunc("/professionals", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Professionals.List(w, r)
			case http.MethodPost:
				cfg.Professionals.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/professionals/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/professionals/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithProfessionalID(r.Context(), id)
			r = r.WithContext(ctx)
			switch r.Method {
			case http.MethodGet:
				cfg.Professionals.Get(w, r)
			case http.MethodPut:
				cfg.Professionals.Update(w, r)
			case http.MethodDelete:
				cfg.Professionals.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Appointments != nil {
		mux.HandleFunc("/appointments", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Appointments.List(w, r)
			case http.MethodPost:
				cfg.Appointments.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/appointments/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/appointments/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			id, sub, _ := strings.Cut(rest, "/")
			ctx := ContextWithAppointmentID(r.Context(), id)
			r = r.WithContext(ctx)

			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Appointments.Get(w, r)
				case http.MethodDelete:
					cfg.Appointments.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case "status":
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Appointments.UpdateStatus(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Attendance != nil {
		mux.HandleFunc("/attendance", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Attendance.Record(w, r)
		})
	}

	if cfg.Subscriptions != nil {
		mux.HandleFunc("/billing/checkout-completed", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Subscriptions.CheckoutCompleted(w, r)
		})
		mux.HandleFunc("/subscription", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Subscriptions.CurrentPlan(w, r)
		})
		mux.HandleFunc("/subscription/usage", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Subscriptions.Usage(w, r)
		})
		mux.HandleFunc("/subscription/cancel", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Subscriptions.Cancel(w, r)
		})
		mux.HandleFunc("/subscription/reactivate", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Subscriptions.Reactivate(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
