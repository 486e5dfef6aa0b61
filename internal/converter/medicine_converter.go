package converter

import (
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
)

func MedicineToResponse(medicine *entity.Medicine) *dto.MedicineResponse {
	if medicine == nil {
		return nil
	}

	return &dto.MedicineResponse{
		ID:        medicine.ID,
		Name:      medicine.Name,
		Unit:      medicine.Unit,
		Price:     medicine.Price,
		Stock:     medicine.Stock,
		CreatedAt: medicine.CreatedAt,
		UpdatedAt: medicine.UpdatedAt,
	}
}

func MedicineUsageLogToResponse(log *entity.MedicineUsageLog) *dto.MedicineUsageLogResponse {
	if log == nil {
		return nil
	}

	return &dto.MedicineUsageLogResponse{
		ID:            log.ID,
		MedicineID:    log.MedicineID,
		AppointmentID: log.AppointmentID,
		Amount:        log.Amount,
		UnitPrice:     log.UnitPrice,
		Cost:          log.Cost,
		StockAfter:    log.StockAfter,
		CreatedAt:     log.CreatedAt,
	}
}

func MedicineUsageLogsToResponses(logs []entity.MedicineUsageLog) []dto.MedicineUsageLogResponse {
	responses := make([]dto.MedicineUsageLogResponse, len(logs))
	for i := range logs {
		responses[i] = *MedicineUsageLogToResponse(&logs[i])
	}
	return responses
}
