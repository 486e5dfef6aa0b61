package http

import (
	"net/http"

	"go-clinic-scheduler/internal/delivery/http/handler"
	"go-clinic-scheduler/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	authHandler        *handler.AuthHandler
	appointmentHandler *handler.AppointmentHandler
	medicineHandler    *handler.MedicineHandler
	auditLogHandler    *handler.AuditLogHandler
	credentialHandler  *handler.CredentialHandler
	healthHandler      *handler.HealthHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
	loggingMiddleware  *middleware.LoggingMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	appointmentHandler *handler.AppointmentHandler,
	medicineHandler *handler.MedicineHandler,
	auditLogHandler *handler.AuditLogHandler,
	credentialHandler *handler.CredentialHandler,
	healthHandler *handler.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	loggingMiddleware *middleware.LoggingMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		authHandler:        authHandler,
		appointmentHandler: appointmentHandler,
		medicineHandler:    medicineHandler,
		auditLogHandler:    auditLogHandler,
		credentialHandler:  credentialHandler,
		healthHandler:      healthHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
		loggingMiddleware:  loggingMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.Use(r.loggingMiddleware.Handle)
	r.router.Use(r.corsMiddleware.Handle)

	// Preflight requests match no method-bound route, so give them one for CORS to answer.
	r.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthHandler.Live).Methods(http.MethodGet)
	api.HandleFunc("/health/ready", r.healthHandler.Ready).Methods(http.MethodGet)

	// Public routes
	api.HandleFunc("/auth/login", r.authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/appointments/first-visit", r.appointmentHandler.BookFirstAppointment).Methods(http.MethodPost)

	// Authenticated routes
	protected := api.NewRoute().Subrouter()
	protected.Use(r.authMiddleware.Authenticate)

	protected.HandleFunc("/auth/logout", r.authHandler.Logout).Methods(http.MethodPost)

	protected.Handle("/appointments", middleware.RequirePatient(http.HandlerFunc(r.appointmentHandler.BookAppointment))).Methods(http.MethodPost)
	protected.HandleFunc("/appointments", r.appointmentHandler.ListAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPatch)
	protected.Handle("/appointments/{id}/complete", middleware.RequireDoctor(http.HandlerFunc(r.appointmentHandler.CompleteAppointment))).Methods(http.MethodPatch)

	protected.HandleFunc("/doctors/free", r.appointmentHandler.FindFreeDoctors).Methods(http.MethodGet)
	protected.HandleFunc("/doctors/{id}/schedule", r.appointmentHandler.GetDoctorSchedule).Methods(http.MethodGet)

	protected.Handle("/medicines/{id}/use", middleware.RequireClinicalStaff(http.HandlerFunc(r.medicineHandler.UseMedicine))).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := r.router.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/medicines", r.medicineHandler.CreateMedicine).Methods(http.MethodPost)
	admin.HandleFunc("/medicines/{id}", r.medicineHandler.GetMedicine).Methods(http.MethodGet)
	admin.HandleFunc("/medicines/{id}/usage-logs", r.medicineHandler.GetUsageLogs).Methods(http.MethodGet)

	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	admin.HandleFunc("/credentials/{userId}/claim", r.credentialHandler.ClaimCredential).Methods(http.MethodPost)

	return r.router
}
