package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
	domainRepo "go-clinic-scheduler/internal/domain/repository"
	"go-clinic-scheduler/internal/service"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func bookRequest(doctor *entity.User, date entity.Date, min, max int) *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		DoctorID:             doctor.ID.String(),
		Date:                 date.String(),
		MinAppointmentNumber: min,
		MaxAppointmentNumber: max,
	}
}

func TestLowestFreeNumber(t *testing.T) {
	tests := []struct {
		name     string
		r        entity.QueueRange
		occupied []int
		want     int
		ok       bool
	}{
		{"empty", entity.QueueRange{Min: 1, Max: 5}, nil, 1, true},
		{"gap", entity.QueueRange{Min: 1, Max: 5}, []int{1, 2, 4}, 3, true},
		{"unsorted", entity.QueueRange{Min: 1, Max: 5}, []int{3, 1, 2}, 4, true},
		{"offset range", entity.QueueRange{Min: 3, Max: 6}, []int{3, 4, 5}, 6, true},
		{"full", entity.QueueRange{Min: 1, Max: 3}, []int{1, 2, 3}, 0, false},
		{"outside numbers ignored", entity.QueueRange{Min: 3, Max: 4}, []int{1, 3, 9}, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lowestFreeNumber(tt.r, tt.occupied)
			if got != tt.want || ok != tt.ok {
				t.Errorf("expected (%d, %t), got (%d, %t)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestScheduler_CreateRejectsDatesOutsideWindow(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	patient := env.user(entity.RoleIDPatient, "patient")
	scheduler := env.scheduler(nil, nil)

	tests := []struct {
		name string
		date string
		want error
	}{
		{"malformed", "31-03-2030", ErrInvalidDateFormat},
		{"yesterday", "2030-03-30", ErrDateInPast},
		{"today after midnight", "2030-03-31", ErrDateInPast},
		{"beyond horizon", "2030-05-01", ErrDateBeyondHorizon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &dto.CreateAppointmentRequest{DoctorID: doctor.ID.String(), Date: tt.date, MinAppointmentNumber: 1, MaxAppointmentNumber: 5}
			_, err := scheduler.Create(context.Background(), patient.ID, req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestScheduler_CreateRejectsInvalidRangeAndUnknownDoctor(t *testing.T) {
	env := newTestEnv(t)
	env.user(entity.RoleIDNurse, "nurse")
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	notDoctor := env.user(entity.RoleIDPatient, "impostor")
	patient := env.user(entity.RoleIDPatient, "patient")
	scheduler := env.scheduler(nil, nil)

	_, err := scheduler.Create(context.Background(), patient.ID, bookRequest(doctor, testDate, 5, 2))
	if !errors.Is(err, ErrInvalidQueueRange) {
		t.Errorf("expected ErrInvalidQueueRange, got %v", err)
	}

	_, err = scheduler.Create(context.Background(), patient.ID, bookRequest(notDoctor, testDate, 1, 5))
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestScheduler_CreateAssignsLowestFreeNumber(t *testing.T) {
	env := newTestEnv(t)
	nurse := env.user(entity.RoleIDNurse, "nurse")
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	other := env.user(entity.RoleIDPatient, "other")
	patient := env.user(entity.RoleIDPatient, "patient")

	env.appointment(doctor, other, nurse, testDate, 1)
	env.appointment(doctor, other, nurse, testDate, 3)

	resp, err := env.scheduler(nil, nil).Create(context.Background(), patient.ID, bookRequest(doctor, testDate, 1, 5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.QueueNumber != 2 {
		t.Errorf("expected queue number 2, got %d", resp.QueueNumber)
	}
	if resp.Status != string(entity.AppointmentStatusCreated) {
		t.Errorf("expected CREATED, got %s", resp.Status)
	}
	if resp.NurseID != nurse.ID {
		t.Errorf("expected nurse %s, got %s", nurse.ID, resp.NurseID)
	}
	if resp.Doctor == nil || resp.Doctor.ID != doctor.ID {
		t.Error("expected the patient to see the doctor")
	}
	if resp.Patient != nil {
		t.Error("the patient view must not repeat the patient")
	}
	if n := env.countAudit(entity.AuditActionAppointmentCreate); n != 1 {
		t.Errorf("expected 1 create audit entry, got %d", n)
	}
}

func TestScheduler_CreateScenarioFullRangeAndOverflow(t *testing.T) {
	env := newTestEnv(t)
	nurse := env.user(entity.RoleIDNurse, "nurse")
	d1 := env.user(entity.RoleIDDoctor, "d1")
	filler := env.user(entity.RoleIDPatient, "filler")
	patient := env.user(entity.RoleIDPatient, "patient")
	for n := 1; n <= 5; n++ {
		env.appointment(d1, filler, nurse, testDate, n)
	}
	scheduler := env.scheduler(nil, nil)

	_, err := scheduler.Create(context.Background(), patient.ID, bookRequest(d1, testDate, 1, 5))
	if !errors.Is(err, ErrQueueExhausted) || !errors.Is(err, ErrExhaustedCapacity) {
		t.Fatalf("expected ErrQueueExhausted, got %v", err)
	}

	resp, err := scheduler.Create(context.Background(), patient.ID, bookRequest(d1, testDate, 3, 6))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.QueueNumber != 6 {
		t.Errorf("expected queue number 6, got %d", resp.QueueNumber)
	}

	finder := NewFreeDoctorFinder(env.db, env.log, env.userRepo)
	low, err := finder.FindFreeDoctors(context.Background(), &dto.FindFreeDoctorsRequest{Date: testDate.String(), MinAppointmentNumber: 1, MaxAppointmentNumber: 5})
	if err != nil {
		t.Fatalf("find free doctors: %v", err)
	}
	for _, d := range low.Doctors {
		if d.ID == d1.ID {
			t.Error("d1 is full in [1,5] and must not be listed")
		}
	}

	high, err := finder.FindFreeDoctors(context.Background(), &dto.FindFreeDoctorsRequest{Date: testDate.String(), MinAppointmentNumber: 6, MaxAppointmentNumber: 10})
	if err != nil {
		t.Fatalf("find free doctors: %v", err)
	}
	if len(high.Doctors) != 1 || high.Doctors[0].ID != d1.ID || high.Doctors[0].Booked != 1 || high.Doctors[0].Free != 4 {
		t.Errorf("expected d1 with 1 booked and 4 free in [6,10], got %+v", high.Doctors)
	}
}

func TestScheduler_CreateRejectsPatientAlreadyBookedInRange(t *testing.T) {
	env := newTestEnv(t)
	env.user(entity.RoleIDNurse, "nurse")
	d1 := env.user(entity.RoleIDDoctor, "d1")
	d2 := env.user(entity.RoleIDDoctor, "d2")
	patient := env.user(entity.RoleIDPatient, "patient")
	scheduler := env.scheduler(nil, nil)

	if _, err := scheduler.Create(context.Background(), patient.ID, bookRequest(d1, testDate, 1, 5)); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := scheduler.Create(context.Background(), patient.ID, bookRequest(d2, testDate, 1, 5))
	if !errors.Is(err, ErrPatientAlreadyBooked) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrPatientAlreadyBooked, got %v", err)
	}

	// A disjoint range on the same date is allowed.
	if _, err := scheduler.Create(context.Background(), patient.ID, bookRequest(d2, testDate, 6, 10)); err != nil {
		t.Errorf("booking a disjoint range: %v", err)
	}
}

func TestScheduler_CreateWithoutNurses(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	patient := env.user(entity.RoleIDPatient, "patient")

	_, err := env.scheduler(nil, nil).Create(context.Background(), patient.ID, bookRequest(doctor, testDate, 1, 5))
	if !errors.Is(err, ErrNoNurseAvailable) {
		t.Fatalf("expected ErrNoNurseAvailable, got %v", err)
	}

	var count int64
	env.db.Model(&entity.Appointment{}).Count(&count)
	if count != 0 {
		t.Errorf("expected nothing persisted, got %d appointments", count)
	}
}

func TestScheduler_ConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	env := newTestEnv(t)
	env.user(entity.RoleIDNurse, "nurse")
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	scheduler := env.scheduler(nil, nil)

	const bookers = 8
	patients := make([]*entity.User, bookers)
	for i := range patients {
		patients[i] = env.user(entity.RoleIDPatient, fmt.Sprintf("patient%d", i))
	}

	var wg sync.WaitGroup
	numbers := make([]int, bookers)
	errs := make([]error, bookers)
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := scheduler.Create(context.Background(), patients[i].ID, bookRequest(doctor, testDate, 1, bookers))
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = resp.QueueNumber
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("booker %d: %v", i, err)
		}
	}
	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i+1 {
			t.Fatalf("expected numbers 1..%d, got %v", bookers, numbers)
		}
	}

	_, err := scheduler.Create(context.Background(), env.user(entity.RoleIDPatient, "late").ID, bookRequest(doctor, testDate, 1, bookers))
	if !errors.Is(err, ErrQueueExhausted) {
		t.Errorf("expected the range to be exhausted, got %v", err)
	}
}

func TestScheduler_ConcurrentCreatesForLastSlot(t *testing.T) {
	env := newTestEnv(t)
	nurse := env.user(entity.RoleIDNurse, "nurse")
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	other := env.user(entity.RoleIDPatient, "other")
	for q := 1; q <= 4; q++ {
		env.appointment(doctor, other, nurse, testDate, q)
	}
	first := env.user(entity.RoleIDPatient, "first")
	second := env.user(entity.RoleIDPatient, "second")
	scheduler := env.scheduler(nil, nil)

	var wg sync.WaitGroup
	numbers := make([]int, 2)
	errs := make([]error, 2)
	for i, patient := range []*entity.User{first, second} {
		wg.Add(1)
		go func(i int, patient *entity.User) {
			defer wg.Done()
			resp, err := scheduler.Create(context.Background(), patient.ID, bookRequest(doctor, testDate, 1, 5))
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = resp.QueueNumber
		}(i, patient)
	}
	wg.Wait()

	var won, lost int
	for i, err := range errs {
		switch {
		case err == nil:
			won++
			if numbers[i] != 5 {
				t.Errorf("expected the winner to get 5, got %d", numbers[i])
			}
		case errors.Is(err, ErrExhaustedCapacity) || errors.Is(err, ErrConflict):
			lost++
		default:
			t.Errorf("booker %d: unexpected error %v", i, err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected one winner and one loser, got errs=%v", errs)
	}

	var count int64
	env.db.Model(&entity.Appointment{}).Where("doctor_id = ? AND queue_number = ?", doctor.ID, 5).Count(&count)
	if count != 1 {
		t.Errorf("expected queue number 5 booked once, got %d", count)
	}
}

// pausingLocker holds the first caller inside the slot lock until release is
// closed, and reports when a second caller starts waiting for a lock.
type pausingLocker struct {
	service.SlotLocker
	calls   atomic.Int32
	held    chan struct{}
	waiting chan struct{}
	release chan struct{}
}

func newPausingLocker(inner service.SlotLocker) *pausingLocker {
	return &pausingLocker{
		SlotLocker: inner,
		held:       make(chan struct{}),
		waiting:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (l *pausingLocker) WithSlotLock(ctx context.Context, doctorID uuid.UUID, date entity.Date, fn func(ctx context.Context) error) error {
	call := l.calls.Add(1)
	if call == 2 {
		close(l.waiting)
	}
	return l.SlotLocker.WithSlotLock(ctx, doctorID, date, func(ctx context.Context) error {
		if call == 1 {
			close(l.held)
			<-l.release
		}
		return fn(ctx)
	})
}

func TestScheduler_CreateAndFirstVisitShareLockOrder(t *testing.T) {
	env := newTestEnv(t)
	env.user(entity.RoleIDNurse, "nurse")
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	patient := env.user(entity.RoleIDPatient, "patient")

	locker := newPausingLocker(env.locks)
	scheduler := env.schedulerWith(nil, nil, locker)

	type result struct {
		queue int
		err   error
	}
	created := make(chan result, 1)
	go func() {
		resp, err := scheduler.Create(context.Background(), patient.ID, bookRequest(doctor, testDate, 1, 5))
		if err != nil {
			created <- result{err: err}
			return
		}
		created <- result{queue: resp.QueueNumber}
	}()
	<-locker.held

	firstVisit := make(chan result, 1)
	go func() {
		resp, err := scheduler.CreateFirstTime(context.Background(), firstVisitRequest("fresh@clinic.test"))
		if err != nil {
			firstVisit <- result{err: err}
			return
		}
		firstVisit <- result{queue: resp.Appointment.QueueNumber}
	}()

	// The first visit has drawn its doctor and queues behind the held lock.
	select {
	case <-locker.waiting:
	case <-time.After(3 * time.Second):
		t.Fatal("first visit never reached the slot lock")
	}
	close(locker.release)

	timeout := time.After(5 * time.Second)
	for _, ch := range []chan result{created, firstVisit} {
		select {
		case r := <-ch:
			if r.err != nil {
				t.Fatalf("booking failed: %v", r.err)
			}
		case <-timeout:
			t.Fatal("bookings did not finish; lock and connection wait on each other")
		}
	}

	numbers, err := env.appointmentRepo.OccupiedQueueNumbers(env.db, doctor.ID, testDate, entity.QueueRange{Min: 1, Max: 50})
	if err != nil {
		t.Fatalf("occupied numbers: %v", err)
	}
	if len(numbers) != 2 || numbers[0] != 1 || numbers[1] != 2 {
		t.Errorf("expected numbers [1 2], got %v", numbers)
	}
}

// racingAppointmentRepo lets a competing booker take the chosen number right
// before the first insert, the way a second replica would.
type racingAppointmentRepo struct {
	domainRepo.AppointmentRepository
	competitor *entity.User
	races      int
	calls      int
}

func (r *racingAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	r.calls++
	if r.calls <= r.races {
		rival := &entity.Appointment{
			DoctorID:    appointment.DoctorID,
			PatientID:   r.competitor.ID,
			NurseID:     appointment.NurseID,
			Date:        appointment.Date,
			QueueNumber: appointment.QueueNumber,
		}
		if err := r.AppointmentRepository.Create(db, rival); err != nil {
			return err
		}
	}
	return r.AppointmentRepository.Create(db, appointment)
}

func TestScheduler_CreateRescansOnceAfterUniqueViolation(t *testing.T) {
	env := newTestEnv(t)
	env.user(entity.RoleIDNurse, "nurse")
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	rival := env.user(entity.RoleIDPatient, "rival")
	patient := env.user(entity.RoleIDPatient, "patient")

	repo := &racingAppointmentRepo{AppointmentRepository: env.appointmentRepo, competitor: rival, races: 1}
	resp, err := env.scheduler(repo, nil).Create(context.Background(), patient.ID, bookRequest(doctor, testDate, 1, 5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.QueueNumber != 2 {
		t.Errorf("expected the rescan to pick 2, got %d", resp.QueueNumber)
	}
	if repo.calls != 2 {
		t.Errorf("expected exactly 2 insert attempts, got %d", repo.calls)
	}
}

func TestScheduler_CreateGivesUpAfterSecondViolation(t *testing.T) {
	env := newTestEnv(t)
	env.user(entity.RoleIDNurse, "nurse")
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	rival := env.user(entity.RoleIDPatient, "rival")
	patient := env.user(entity.RoleIDPatient, "patient")

	repo := &racingAppointmentRepo{AppointmentRepository: env.appointmentRepo, competitor: rival, races: 2}
	_, err := env.scheduler(repo, nil).Create(context.Background(), patient.ID, bookRequest(doctor, testDate, 1, 5))
	if !errors.Is(err, ErrQueueContended) || !errors.Is(err, ErrExhaustedCapacity) {
		t.Fatalf("expected ErrQueueContended, got %v", err)
	}
	if repo.calls != 2 {
		t.Errorf("expected exactly 2 insert attempts, got %d", repo.calls)
	}

	var count int64
	env.db.Model(&entity.Appointment{}).Count(&count)
	if count != 0 {
		t.Errorf("expected the failed booking to roll back, got %d appointments", count)
	}
}

func firstVisitRequest(email string) *dto.CreateFirstAppointmentRequest {
	return &dto.CreateFirstAppointmentRequest{
		FullName:    "New Patient",
		Email:       email,
		NationalID:  "3201010101010001",
		PhoneNumber: "081234567890",
		DateOfBirth: "1990-05-17",
		Gender:      entity.GenderFemale,
		Date:        testDate.String(),
	}
}

func TestScheduler_CreateFirstTime(t *testing.T) {
	env := newTestEnv(t)
	nurse := env.user(entity.RoleIDNurse, "nurse")
	busy := env.user(entity.RoleIDDoctor, "busy")
	free := env.user(entity.RoleIDDoctor, "free")
	other := env.user(entity.RoleIDPatient, "other")
	env.appointment(busy, other, nurse, testDate, 1)

	resp, err := env.scheduler(nil, FixedSelector(0)).CreateFirstTime(context.Background(), firstVisitRequest("new@clinic.test"))
	if err != nil {
		t.Fatalf("create first time: %v", err)
	}

	if resp.Login != "new@clinic.test" || resp.CredentialDelivery != dto.CredentialDeliveryPendingPickup {
		t.Errorf("unexpected credential fields: %+v", resp)
	}
	if resp.Appointment.QueueNumber != 1 {
		t.Errorf("expected queue number 1, got %d", resp.Appointment.QueueNumber)
	}
	if resp.Appointment.Doctor == nil || resp.Appointment.Doctor.ID != free.ID {
		t.Errorf("expected the free doctor to be assigned, got %+v", resp.Appointment.Doctor)
	}

	if len(env.credentials.delivered) != 1 {
		t.Fatalf("expected one credential delivery, got %d", len(env.credentials.delivered))
	}
	registration := env.credentials.delivered[0]
	if registration.InitialSecret == "" {
		t.Fatal("expected an initial secret to be delivered")
	}

	token, err := env.authUsecase.Login(context.Background(), &dto.LoginRequest{Email: "new@clinic.test", Password: registration.InitialSecret})
	if err != nil || token.AccessToken == "" {
		t.Errorf("expected the delivered secret to log in, got (%v, %v)", token, err)
	}
	if n := env.countAudit(entity.AuditActionUserRegister); n != 1 {
		t.Errorf("expected 1 register audit entry, got %d", n)
	}
}

func TestScheduler_CreateFirstTimeRejectsKnownEmail(t *testing.T) {
	env := newTestEnv(t)
	env.user(entity.RoleIDNurse, "nurse")
	env.user(entity.RoleIDDoctor, "doctor")
	env.user(entity.RoleIDPatient, "known")

	_, err := env.scheduler(nil, nil).CreateFirstTime(context.Background(), firstVisitRequest("known@clinic.test"))
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if len(env.credentials.delivered) != 0 {
		t.Error("no credential may be delivered for a rejected booking")
	}
}

func TestScheduler_CreateFirstTimeNoFreeDoctorRollsBack(t *testing.T) {
	env := newTestEnv(t)
	nurse := env.user(entity.RoleIDNurse, "nurse")
	doctor := env.user(entity.RoleIDDoctor, "doctor")
	other := env.user(entity.RoleIDPatient, "other")
	env.appointment(doctor, other, nurse, testDate, 1)

	_, err := env.scheduler(nil, nil).CreateFirstTime(context.Background(), firstVisitRequest("late@clinic.test"))
	if !errors.Is(err, ErrNoDoctorAvailable) {
		t.Fatalf("expected ErrNoDoctorAvailable, got %v", err)
	}

	user, err := env.userRepo.FindByEmail(env.db, "late@clinic.test")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user != nil {
		t.Error("the patient account must roll back with the booking")
	}
}

func TestScheduler_CreateFirstTimeSurvivesDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.user(entity.RoleIDNurse, "nurse")
	env.user(entity.RoleIDDoctor, "doctor")
	env.credentials.err = errors.New("redis down")

	resp, err := env.scheduler(nil, nil).CreateFirstTime(context.Background(), firstVisitRequest("new@clinic.test"))
	if err != nil {
		t.Fatalf("expected the committed booking to be returned, got %v", err)
	}
	if resp.Appointment.QueueNumber != 1 {
		t.Errorf("expected queue number 1, got %d", resp.Appointment.QueueNumber)
	}
}
