package usecase

import (
	"context"
	"sort"

	"go-clinic-scheduler/internal/converter"
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FreeDoctorFinder estimates which doctors still have room in a queue range.
// The result reserves nothing; a later booking may still find the range full.
type FreeDoctorFinder interface {
	FindFreeDoctors(ctx context.Context, req *dto.FindFreeDoctorsRequest) (*dto.FreeDoctorListResponse, error)
}

type freeDoctorFinder struct {
	db       *gorm.DB
	log      *logrus.Logger
	userRepo repository.UserRepository
}

func NewFreeDoctorFinder(db *gorm.DB, log *logrus.Logger, userRepo repository.UserRepository) FreeDoctorFinder {
	return &freeDoctorFinder{
		db:       db,
		log:      log,
		userRepo: userRepo,
	}
}

// FindFreeDoctors returns doctors that are partially booked in the range but not
// full, plus doctors with nothing booked in the range, most free capacity first.
func (u *freeDoctorFinder) FindFreeDoctors(ctx context.Context, req *dto.FindFreeDoctorsRequest) (*dto.FreeDoctorListResponse, error) {
	date, err := entity.ParseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	queueRange := entity.QueueRange{Min: req.MinAppointmentNumber, Max: req.MaxAppointmentNumber}
	if !queueRange.Valid() {
		return nil, ErrInvalidQueueRange
	}

	capacities, err := u.userRepo.FindDoctorsWithCapacity(u.db.WithContext(ctx), date, queueRange)
	if err != nil {
		u.log.Warnf("Failed to find doctors with capacity: %+v", err)
		return nil, err
	}

	doctors := make([]dto.FreeDoctorResponse, len(capacities))
	for i, capacity := range capacities {
		doctors[i] = converter.DoctorCapacityToResponse(capacity, queueRange)
	}
	sort.SliceStable(doctors, func(i, j int) bool {
		return doctors[i].Free > doctors[j].Free
	})

	return &dto.FreeDoctorListResponse{
		Date:    date.String(),
		Min:     queueRange.Min,
		Max:     queueRange.Max,
		Doctors: doctors,
	}, nil
}
