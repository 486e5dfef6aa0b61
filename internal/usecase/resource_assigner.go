package usecase

import (
	"math/rand/v2"
	"sync"

	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/domain/repository"

	"gorm.io/gorm"
)

// Selector picks an index in [0, n). n is always positive.
type Selector interface {
	Select(n int) int
}

// RandomSelector picks uniformly using the runtime's random source.
type RandomSelector struct{}

func (RandomSelector) Select(n int) int {
	return rand.IntN(n)
}

// SeededSelector picks uniformly from a reproducible sequence.
type SeededSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeededSelector(seed uint64) *SeededSelector {
	return &SeededSelector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSelector) Select(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// FixedSelector always picks the same position, wrapped to the candidate count.
type FixedSelector int

func (f FixedSelector) Select(n int) int {
	i := int(f) % n
	if i < 0 {
		i += n
	}
	return i
}

func pick[T any](selector Selector, candidates []T) (T, bool) {
	var zero T
	if len(candidates) == 0 {
		return zero, false
	}
	return candidates[selector.Select(len(candidates))], true
}

// ResourceAssigner draws supporting staff and first-visit doctors from their pools.
type ResourceAssigner struct {
	selector Selector
	userRepo repository.UserRepository
}

func NewResourceAssigner(selector Selector, userRepo repository.UserRepository) *ResourceAssigner {
	if selector == nil {
		selector = RandomSelector{}
	}
	return &ResourceAssigner{selector: selector, userRepo: userRepo}
}

// AssignNurse picks one of the active nurses.
func (a *ResourceAssigner) AssignNurse(db *gorm.DB) (*entity.User, error) {
	nurses, err := a.userRepo.FindActiveByRole(db, entity.RoleIDNurse)
	if err != nil {
		return nil, err
	}
	nurse, ok := pick(a.selector, nurses)
	if !ok {
		return nil, ErrNoNurseAvailable
	}
	return &nurse, nil
}

// AssignFreeDoctor picks one of the doctors with nothing booked on date.
func (a *ResourceAssigner) AssignFreeDoctor(db *gorm.DB, date entity.Date) (*entity.User, error) {
	doctors, err := a.userRepo.FindDoctorsFreeOn(db, date)
	if err != nil {
		return nil, err
	}
	doctor, ok := pick(a.selector, doctors)
	if !ok {
		return nil, ErrNoDoctorAvailable
	}
	return &doctor, nil
}
