package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/permission-management/internal/auth"
	authPostgres "github.com/frahmantamala/permission-management/internal/auth/postgres"
	permissionDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/permission"
	userDatamodel "github.com/frahmantamala/permission-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permission-management/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const seedPassword = "password123"

type seedAccount struct {
	Name        string
	Surname     string
	Email       string
	StudentCode string
	Role        auth.Role
}

var seedAccounts = []seedAccount{
	{Name: "Diana", Surname: "Directora", Email: "director@colegio.edu", Role: auth.RoleDirector},
	{Name: "Tomas", Surname: "Profesor", Email: "teacher@colegio.edu", Role: auth.RoleTeacher},
	{Name: "Ana", Surname: "Estudiante", Email: "student@colegio.edu", StudentCode: "EST-001", Role: auth.RoleStudent},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a director, a teacher and a student, plus one pending request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db, cfg.Env)
		if err != nil {
			return fmt.Errorf("failed to init gorm: %w", err)
		}

		seeder := &Seeder{
			db:     gormDB,
			hasher: auth.NewBcryptHasher(cfg.Security.BCryptCost),
			logger: logger.LoggerWrapper(),
			now:    time.Now,
		}
		return seeder.Run(cmd.Context(), clearData)
	},
}

type Seeder struct {
	db     *gorm.DB
	hasher auth.PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

// Run inserts the sample accounts that do not exist yet. With clear set it
// empties permission_requests and users first.
func (s *Seeder) Run(ctx context.Context, clear bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if clear {
		if err := s.clear(ctx); err != nil {
			return err
		}
	}

	repo := authPostgres.NewRepository(s.db)
	hash, err := s.hasher.Hash(seedPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	var student *userDatamodel.User
	for _, acc := range seedAccounts {
		existing, err := repo.GetByEmail(ctx, acc.Email)
		if err == nil {
			s.logger.Info("seed user already exists", "email", acc.Email)
			if acc.Role == auth.RoleStudent {
				student = existing
			}
			continue
		}

		u := &userDatamodel.User{
			Name:         acc.Name,
			Surname:      acc.Surname,
			Email:        acc.Email,
			PasswordHash: hash,
			Role:         string(acc.Role),
			Active:       true,
		}
		if acc.StudentCode != "" {
			code := acc.StudentCode
			u.StudentCode = &code
		}
		if err := repo.Create(ctx, u); err != nil {
			return fmt.Errorf("failed to insert %s user: %w", acc.Role, err)
		}
		s.logger.Info("seeded user", "email", acc.Email, "role", acc.Role)
		if acc.Role == auth.RoleStudent {
			student = u
		}
	}

	if student == nil {
		return nil
	}
	return s.seedRequest(ctx, student.ID)
}

func (s *Seeder) seedRequest(ctx context.Context, studentID int64) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&permissionDatamodel.PermissionRequest{}).
		Where("requester_id = ?", studentID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count seed requests: %w", err)
	}
	if count > 0 {
		return nil
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	req := &permissionDatamodel.PermissionRequest{
		RequesterID: studentID,
		Reason:      "Medical appointment at the hospital",
		StartDate:   today.AddDate(0, 0, 7),
		EndDate:     today.AddDate(0, 0, 8),
		Status:      "pending",
		RequestedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to insert seed request: %w", err)
	}
	s.logger.Info("seeded permission request", "permission_id", req.ID, "requester_id", studentID)
	return nil
}

func (s *Seeder) clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM permission_requests").Error; err != nil {
			return fmt.Errorf("failed to clear permission_requests: %w", err)
		}
		if err := tx.Exec("DELETE FROM users").Error; err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}
		s.logger.Info("cleared existing data")
		return nil
	})
}
