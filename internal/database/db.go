package database

import (
	"os"

	"fundecodes-backend/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		logrus.WithError(err).Warn("Failed to auto-migrate models")
	}

	return db, nil
}

// Migrate runs the schema migrations for all core models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.Program{},
		&model.PurchaseRequest{},
		&model.RequestHistory{},
		&model.FinalInvoice{},
		&model.AuditLog{},
	)
}

// defaultPrograms are the organization programs created on first boot.
var defaultPrograms = []model.Program{
	{Name: "Conservación Marina", Description: "Coastal and marine conservation projects", Active: true},
	{Name: "Desarrollo Comunitario", Description: "Community development initiatives", Active: true},
	{Name: "Educación Ambiental", Description: "Environmental education programs", Active: true},
	{Name: "Voluntariado", Description: "Volunteer coordination and logistics", Active: true},
}

// Seed creates the default programs and the bootstrap admin account if they
// do not exist yet. Roles and permissions are seeded separately by the role
// service before this runs.
func Seed(db *gorm.DB) error {
	for _, p := range defaultPrograms {
		var count int64
		if err := db.Model(&model.Program{}).Where("name = ?", p.Name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			program := p
			if err := db.Create(&program).Error; err != nil {
				return err
			}
			logrus.WithField("program", program.Name).Info("Seeded program")
		}
	}

	return seedAdminUser(db)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@fundecodes.org"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		logrus.Warn("ADMIN_PASSWORD not set, using default bootstrap password")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.User{
		Username: "admin",
		Email:    email,
		Password: string(hashed),
		Role:     model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	logrus.WithField("email", email).Info("Seeded bootstrap admin user")
	return nil
}
