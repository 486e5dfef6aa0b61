package usecase

import (
	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConflictChecker answers whether patients or queue numbers are already taken.
type ConflictChecker struct {
	appointmentRepo repository.AppointmentRepository
}

func NewConflictChecker(appointmentRepo repository.AppointmentRepository) *ConflictChecker {
	return &ConflictChecker{appointmentRepo: appointmentRepo}
}

// PatientHasBooking reports whether the patient holds a live appointment on date,
// restricted to queueRange when it is not nil.
func (c *ConflictChecker) PatientHasBooking(db *gorm.DB, patientID uuid.UUID, date entity.Date, queueRange *entity.QueueRange) (bool, error) {
	return c.appointmentRepo.ExistsForPatient(db, patientID, date, queueRange)
}

// OccupiedNumbers returns the taken queue numbers for the doctor on date inside queueRange.
func (c *ConflictChecker) OccupiedNumbers(db *gorm.DB, doctorID uuid.UUID, date entity.Date, queueRange entity.QueueRange) ([]int, error) {
	return c.appointmentRepo.OccupiedQueueNumbers(db, doctorID, date, queueRange)
}

// SlotAllocator finds the lowest free queue number in a range.
type SlotAllocator struct {
	checker *ConflictChecker
}

func NewSlotAllocator(checker *ConflictChecker) *SlotAllocator {
	return &SlotAllocator{checker: checker}
}

// LowestFree fetches the occupied numbers once and returns the smallest number
// of the range not among them, or ErrQueueExhausted.
func (s *SlotAllocator) LowestFree(db *gorm.DB, doctorID uuid.UUID, date entity.Date, queueRange entity.QueueRange) (int, error) {
	occupied, err := s.checker.OccupiedNumbers(db, doctorID, date, queueRange)
	if err != nil {
		return 0, err
	}
	n, ok := lowestFreeNumber(queueRange, occupied)
	if !ok {
		return 0, ErrQueueExhausted
	}
	return n, nil
}

func lowestFreeNumber(queueRange entity.QueueRange, occupied []int) (int, bool) {
	taken := make(map[int]struct{}, len(occupied))
	for _, n := range occupied {
		if queueRange.Contains(n) {
			taken[n] = struct{}{}
		}
	}
	for n := queueRange.Min; n <= queueRange.Max; n++ {
		if _, ok := taken[n]; !ok {
			return n, true
		}
	}
	return 0, false
}
