package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrCredentialNotFound is returned when no pending credential exists for a user.
var ErrCredentialNotFound = errors.New("no pending credential for user")

const RedisCredentialKeyPrefix = "credential:pickup:"

// CredentialService hands initial secrets of provisioned accounts to staff
// through a one-time pickup instead of returning them to the booking caller.
type CredentialService interface {
	Deliver(ctx context.Context, registration *entity.PatientRegistration) error
	Claim(ctx context.Context, claimedBy uuid.UUID, userID uuid.UUID) (string, error)
}

type redisCredentialService struct {
	redisClient  *redis.Client
	log          *logrus.Logger
	auditService AuditService
	ttl          time.Duration
}

func NewCredentialService(redisClient *redis.Client, log *logrus.Logger, auditService AuditService, ttl time.Duration) CredentialService {
	return &redisCredentialService{
		redisClient:  redisClient,
		log:          log,
		auditService: auditService,
		ttl:          ttl,
	}
}

func (s *redisCredentialService) Deliver(ctx context.Context, registration *entity.PatientRegistration) error {
	key := RedisCredentialKeyPrefix + registration.UserID.String()
	if err := s.redisClient.Set(ctx, key, registration.InitialSecret, s.ttl).Err(); err != nil {
		s.log.Warnf("Failed to store credential for user %s: %+v", registration.UserID, err)
		return fmt.Errorf("store credential: %w", err)
	}

	userID := registration.UserID
	if err := s.auditService.LogEvent(ctx, nil, &userID, entity.AuditActionCredentialIssued, entity.JSON{
		"email":      registration.Email,
		"expires_at": time.Now().Add(s.ttl).UTC(),
	}); err != nil {
		return err
	}

	s.log.Infof("Credential queued for pickup: user=%s", registration.UserID)
	return nil
}

// Claim returns the pending secret once and removes it.
func (s *redisCredentialService) Claim(ctx context.Context, claimedBy uuid.UUID, userID uuid.UUID) (string, error) {
	secret, err := s.redisClient.GetDel(ctx, RedisCredentialKeyPrefix+userID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCredentialNotFound
		}
		s.log.Warnf("Failed to claim credential for user %s: %+v", userID, err)
		return "", fmt.Errorf("claim credential: %w", err)
	}

	if err := s.auditService.LogEvent(ctx, nil, &claimedBy, entity.AuditActionCredentialClaimed, entity.JSON{
		"user_id": userID.String(),
	}); err != nil {
		s.log.Warnf("Credential for user %s claimed but audit failed: %+v", userID, err)
	}

	return secret, nil
}
