package handler

import (
	"encoding/json"
	"net/http"

	"go-clinic-scheduler/internal/converter"
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/delivery/http/middleware"
	"go-clinic-scheduler/internal/usecase"
	"go-clinic-scheduler/pkg/response"
	"go-clinic-scheduler/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type MedicineHandler struct {
	medicineUsecase usecase.MedicineUsecase
	validator       *validator.CustomValidator
}

func NewMedicineHandler(medicineUsecase usecase.MedicineUsecase, validator *validator.CustomValidator) *MedicineHandler {
	return &MedicineHandler{
		medicineUsecase: medicineUsecase,
		validator:       validator,
	}
}

func (h *MedicineHandler) CreateMedicine(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMedicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	medicine, err := h.medicineUsecase.CreateMedicine(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to create medicine")
		return
	}

	response.Success(w, http.StatusCreated, "Medicine created successfully", medicine)
}

func (h *MedicineHandler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	medicineID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid medicine ID", nil)
		return
	}

	medicine, err := h.medicineUsecase.GetMedicine(r.Context(), medicineID)
	if err != nil {
		writeError(w, err, "Failed to get medicine")
		return
	}

	response.Success(w, http.StatusOK, "Medicine retrieved successfully", medicine)
}

func (h *MedicineHandler) UseMedicine(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	medicineID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid medicine ID", nil)
		return
	}

	var req dto.UseMedicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	var appointmentID *uuid.UUID
	if req.AppointmentID != "" {
		id := uuid.MustParse(req.AppointmentID)
		appointmentID = &id
	}

	usage, err := h.medicineUsecase.UseMedicine(r.Context(), nil, &actorID, medicineID, req.Amount, appointmentID)
	if err != nil {
		writeError(w, err, "Failed to use medicine")
		return
	}

	response.Success(w, http.StatusOK, "Medicine used successfully", converter.MedicineUsageLogToResponse(usage))
}

func (h *MedicineHandler) GetUsageLogs(w http.ResponseWriter, r *http.Request) {
	medicineID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid medicine ID", nil)
		return
	}

	logs, err := h.medicineUsecase.GetUsageLogs(r.Context(), medicineID)
	if err != nil {
		writeError(w, err, "Failed to get usage logs")
		return
	}

	response.Success(w, http.StatusOK, "Usage logs retrieved successfully", logs)
}
