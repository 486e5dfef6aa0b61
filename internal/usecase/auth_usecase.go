package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
	"go-clinic-scheduler/internal/domain/repository"
	"go-clinic-scheduler/internal/service"
	"go-clinic-scheduler/pkg/jwt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = newError(ErrValidation, "invalid email or password")
	ErrInvalidBirthDate   = newError(ErrValidation, "invalid date of birth, use YYYY-MM-DD")
)

const (
	RedisRevokedTokenKeyPrefix = "revoked_token:"

	initialSecretBytes = 18
)

type AuthUsecase interface {
	// RegisterPatient provisions a patient account on db, which may be a transaction.
	RegisterPatient(ctx context.Context, db *gorm.DB, req *dto.RegisterPatientRequest) (*entity.PatientRegistration, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type authUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	userRepo     repository.UserRepository
	auditService service.AuditService
	jwtService   *jwt.JWTService
	redisClient  *redis.Client
}

func NewAuthUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	auditService service.AuditService,
	jwtService *jwt.JWTService,
	redisClient *redis.Client,
) AuthUsecase {
	return &authUsecase{
		db:           db,
		log:          log,
		userRepo:     userRepo,
		auditService: auditService,
		jwtService:   jwtService,
		redisClient:  redisClient,
	}
}

func (u *authUsecase) RegisterPatient(ctx context.Context, db *gorm.DB, req *dto.RegisterPatientRequest) (*entity.PatientRegistration, error) {
	dob, err := entity.ParseDate(req.DateOfBirth)
	if err != nil {
		return nil, ErrInvalidBirthDate
	}

	secret, err := generateInitialSecret()
	if err != nil {
		u.log.Warnf("Failed to generate initial secret: %+v", err)
		return nil, err
	}

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash initial secret: %+v", err)
		return nil, err
	}

	user := &entity.User{
		RoleID:      entity.RoleIDPatient,
		Email:       req.Email,
		Password:    string(hashedSecret),
		FullName:    req.FullName,
		NationalID:  req.NationalID,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: &dob,
		Gender:      req.Gender,
		IsActive:    entity.BoolPtr(true),
	}

	if err := u.userRepo.Create(db, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create patient: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, db, &user.ID, entity.AuditActionUserRegister, "user", user.ID.String(), map[string]interface{}{
		"email":   user.Email,
		"role_id": user.RoleID,
	}); err != nil {
		return nil, err
	}

	return &entity.PatientRegistration{
		UserID:        user.ID,
		Email:         user.Email,
		InitialSecret: secret,
	}, nil
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(u.db.WithContext(ctx), req.Email)
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return nil, err
	}
	if user == nil || !user.Active() {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, _, err := u.jwtService.GenerateAccessToken(user.ID, user.Email, user.RoleID)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

// Logout denylists the access token until it would have expired anyway.
func (u *authUsecase) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if u.redisClient == nil {
		return nil
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := u.redisClient.Set(ctx, RedisRevokedTokenKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		u.log.Warnf("Failed to revoke token: %+v", err)
		return err
	}
	return nil
}

func generateInitialSecret() (string, error) {
	buf := make([]byte, initialSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
