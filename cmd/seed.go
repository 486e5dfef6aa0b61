package main

import (
	"fmt"
	"time"

	"go-clinic-scheduler/internal/domain/entity"
	domainRepo "go-clinic-scheduler/internal/domain/repository"
	"go-clinic-scheduler/internal/infrastructure/database"
	"go-clinic-scheduler/internal/repository"
	"go-clinic-scheduler/pkg/jwt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedOptions struct {
	seed          uint64
	doctors       int
	nurses        int
	patients      int
	medicines     int
	adminEmail    string
	adminPassword string
	staffPassword string
}

func newSeedCmd() *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with development data and print an admin token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().IntVar(&opts.doctors, "doctors", 10, "number of doctors")
	cmd.Flags().IntVar(&opts.nurses, "nurses", 5, "number of nurses")
	cmd.Flags().IntVar(&opts.patients, "patients", 50, "number of patients")
	cmd.Flags().IntVar(&opts.medicines, "medicines", 20, "number of medicines")
	cmd.Flags().StringVar(&opts.adminEmail, "admin-email", "admin@clinic.local", "admin login")
	cmd.Flags().StringVar(&opts.adminPassword, "admin-password", "admin12345", "admin password")
	cmd.Flags().StringVar(&opts.staffPassword, "staff-password", "password123", "password for seeded doctors, nurses and patients")
	return cmd
}

func runSeed(cmd *cobra.Command, opts seedOptions) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewPostgresConnection(cfg.DB, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	faker := gofakeit.New(opts.seed)
	userRepo := repository.NewUserRepository()
	medicineRepo := repository.NewMedicineRepository()

	var admin *entity.User
	err = db.WithContext(cmd.Context()).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewRoleRepository().EnsureDefaults(tx); err != nil {
			return fmt.Errorf("roles: %w", err)
		}

		seededAdmin, err := ensureAdmin(tx, userRepo, opts)
		if err != nil {
			return fmt.Errorf("admin: %w", err)
		}
		admin = seededAdmin

		staffHash, err := bcrypt.GenerateFromPassword([]byte(opts.staffPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		groups := []struct {
			roleID int
			count  int
		}{
			{entity.RoleIDDoctor, opts.doctors},
			{entity.RoleIDNurse, opts.nurses},
			{entity.RoleIDPatient, opts.patients},
		}
		for _, group := range groups {
			for i := 0; i < group.count; i++ {
				user := fakeUser(faker, group.roleID, i, string(staffHash))
				if err := userRepo.Create(tx, user); err != nil {
					return fmt.Errorf("%s %d: %w", entity.RoleName(group.roleID), i, err)
				}
			}
			log.Infof("Seeded %d %ss", group.count, entity.RoleName(group.roleID))
		}

		units := []string{"tablet", "capsule", "ml", "sachet", "vial"}
		for i := 0; i < opts.medicines; i++ {
			medicine := &entity.Medicine{
				Name:  faker.ProductName(),
				Unit:  faker.RandomString(units),
				Price: decimal.NewFromFloat(faker.Price(1, 150)).Round(2),
				Stock: faker.Number(0, 500),
			}
			if err := medicineRepo.Create(tx, medicine); err != nil {
				return fmt.Errorf("medicine %d: %w", i, err)
			}
		}
		log.Infof("Seeded %d medicines", opts.medicines)
		return nil
	})
	if err != nil {
		log.Errorf("Seed failed: %v", err)
		return err
	}

	token, _, err := jwt.NewJWTService(cfg.JWT).GenerateAccessToken(admin.ID, admin.Email, admin.RoleID)
	if err != nil {
		return fmt.Errorf("admin token: %w", err)
	}

	log.WithFields(logrus.Fields{"email": admin.Email}).Info("Seed complete")
	fmt.Fprintf(cmd.OutOrStdout(), "admin access token (expires in %s):\n%s\n", cfg.JWT.AccessExpiry, token)
	return nil
}

// ensureAdmin keeps reseeding idempotent for the admin account.
func ensureAdmin(tx *gorm.DB, userRepo domainRepo.UserRepository, opts seedOptions) (*entity.User, error) {
	admin, err := userRepo.FindByEmail(tx, opts.adminEmail)
	if err != nil || admin != nil {
		return admin, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin = &entity.User{
		RoleID:   entity.RoleIDAdmin,
		Email:    opts.adminEmail,
		Password: string(hash),
		FullName: "Clinic Administrator",
		IsActive: entity.BoolPtr(true),
	}
	if err := userRepo.Create(tx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func fakeUser(faker *gofakeit.Faker, roleID, i int, passwordHash string) *entity.User {
	now := time.Now()
	dob := entity.NewDate(faker.DateRange(now.AddDate(-80, 0, 0), now.AddDate(-18, 0, 0)))
	gender := entity.GenderMale
	if faker.Bool() {
		gender = entity.GenderFemale
	}

	return &entity.User{
		RoleID:      roleID,
		Email:       fmt.Sprintf("%s.%d.%s", entity.RoleName(roleID), i, faker.Email()),
		Password:    passwordHash,
		FullName:    faker.Name(),
		NationalID:  faker.Numerify("################"),
		PhoneNumber: faker.Phone(),
		DateOfBirth: &dob,
		Gender:      gender,
		IsActive:    entity.BoolPtr(true),
	}
}
