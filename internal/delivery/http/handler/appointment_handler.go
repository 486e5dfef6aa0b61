package handler

import (
	"encoding/json"
	"net/http"

	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/delivery/http/middleware"
	"go-clinic-scheduler/internal/usecase"
	"go-clinic-scheduler/pkg/response"
	"go-clinic-scheduler/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	scheduler        usecase.AppointmentScheduler
	stateMachine     usecase.StatusStateMachine
	queryUsecase     usecase.AppointmentQueryUsecase
	freeDoctorFinder usecase.FreeDoctorFinder
	validator        *validator.CustomValidator
}

func NewAppointmentHandler(
	scheduler usecase.AppointmentScheduler,
	stateMachine usecase.StatusStateMachine,
	queryUsecase usecase.AppointmentQueryUsecase,
	freeDoctorFinder usecase.FreeDoctorFinder,
	validator *validator.CustomValidator,
) *AppointmentHandler {
	return &AppointmentHandler{
		scheduler:        scheduler,
		stateMachine:     stateMachine,
		queryUsecase:     queryUsecase,
		freeDoctorFinder: freeDoctorFinder,
		validator:        validator,
	}
}

// BookAppointment books the lowest free queue number in the requested range
// @Summary Book an appointment
// @Tags Appointments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateAppointmentRequest true "Booking Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.scheduler.Create(r.Context(), patientID, &req)
	if err != nil {
		writeError(w, err, "Failed to book appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", appointment)
}

// BookFirstAppointment registers a new patient and books their first visit
// @Summary Book a first visit
// @Tags Appointments
// @Accept json
// @Produce json
// @Param request body dto.CreateFirstAppointmentRequest true "First Visit Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/first-visit [post]
func (h *AppointmentHandler) BookFirstAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateFirstAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.scheduler.CreateFirstTime(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to book first visit")
		return
	}

	response.Success(w, http.StatusCreated, "First visit booked, credentials are pending pickup at the front desk", result)
}

func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	appointments, err := h.queryUsecase.FindAll(r.Context(), actor, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	appointmentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	appointment, err := h.queryUsecase.FindOne(r.Context(), actor, appointmentID)
	if err != nil {
		writeError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	appointmentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	appointment, err := h.stateMachine.Cancel(r.Context(), appointmentID, actor)
	if err != nil {
		writeError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment canceled successfully", appointment)
}

// CompleteAppointment records the visit outcome. Medicine lines that cannot be
// dispensed are reported in medicine_logs without failing the request.
func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	appointmentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	var req dto.CompleteAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.stateMachine.Complete(r.Context(), doctorID, appointmentID, &req)
	if err != nil {
		writeError(w, err, "Failed to complete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment completed successfully", result)
}

func (h *AppointmentHandler) FindFreeDoctors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := dto.FindFreeDoctorsRequest{
		Date:                 query.Get("date"),
		MinAppointmentNumber: queryInt(query.Get("min"), 0),
		MaxAppointmentNumber: queryInt(query.Get("max"), 0),
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	doctors, err := h.freeDoctorFinder.FindFreeDoctors(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to find free doctors")
		return
	}

	response.Success(w, http.StatusOK, "Free doctors retrieved successfully", doctors)
}

func (h *AppointmentHandler) GetDoctorSchedule(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}

	schedule, err := h.queryUsecase.GetDoctorSchedule(r.Context(), doctorID)
	if err != nil {
		writeError(w, err, "Failed to get doctor schedule")
		return
	}

	response.Success(w, http.StatusOK, "Doctor schedule retrieved successfully", schedule)
}
