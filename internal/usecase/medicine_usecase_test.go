package usecase

import (
	"context"
	"errors"
	"testing"

	"go-clinic-scheduler/internal/delivery/dto"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func decimalInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func TestMedicineUsecase_CreateRejectsNegativePrice(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.medicineUsecase.CreateMedicine(context.Background(), &dto.CreateMedicineRequest{
		Name:  "Vitamin C",
		Unit:  "tablet",
		Price: decimal.RequireFromString("-1"),
	})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestMedicineUsecase_UseMedicine(t *testing.T) {
	env := newTestEnv(t)
	medicine := env.medicine("Ibuprofen", "2.25", 4)

	usage, err := env.medicineUsecase.UseMedicine(context.Background(), nil, nil, medicine.ID, 3, nil)
	if err != nil {
		t.Fatalf("use medicine: %v", err)
	}
	if usage.StockAfter != 1 {
		t.Errorf("expected stock after 1, got %d", usage.StockAfter)
	}
	if !usage.Cost.Equal(decimal.RequireFromString("6.75")) {
		t.Errorf("expected cost 6.75, got %s", usage.Cost)
	}

	tests := []struct {
		name   string
		id     uuid.UUID
		amount int
		want   error
	}{
		{"insufficient", medicine.ID, 2, ErrInsufficientStock},
		{"zero amount", medicine.ID, 0, ErrInvalidAmount},
		{"unknown medicine", uuid.New(), 1, ErrMedicineNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.medicineUsecase.UseMedicine(context.Background(), nil, nil, tt.id, tt.amount, nil)
			if !errors.Is(err, tt.want) || !errors.Is(err, ErrInventory) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	logs, err := env.medicineUsecase.GetUsageLogs(context.Background(), medicine.ID)
	if err != nil {
		t.Fatalf("usage logs: %v", err)
	}
	if logs.Total != 1 || !logs.TotalCost.Equal(decimal.RequireFromString("6.75")) {
		t.Errorf("expected one log costing 6.75, got total=%d cost=%s", logs.Total, logs.TotalCost)
	}
}

func TestMedicineUsecase_GetMissing(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.medicineUsecase.GetMedicine(context.Background(), uuid.New()); !errors.Is(err, ErrMedicineNotFound) {
		t.Errorf("expected ErrMedicineNotFound, got %v", err)
	}
	if _, err := env.medicineUsecase.GetUsageLogs(context.Background(), uuid.New()); !errors.Is(err, ErrMedicineNotFound) {
		t.Errorf("expected ErrMedicineNotFound, got %v", err)
	}
}
