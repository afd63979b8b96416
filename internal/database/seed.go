package database

import (
    "gorm.io/gorm"

    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/config"
    "github.com/zaqqye/placement_backend/internal/models"
    "github.com/zaqqye/placement_backend/internal/scope"
    "github.com/zaqqye/placement_backend/internal/utils"
)

// SeedSuperOperator creates the bootstrap super operator once. It is a
// no-op when any super operator exists.
func SeedSuperOperator(db *gorm.DB, cfg *config.Config, logger log.FieldLogger) error {
    var count int64
    if err := db.Model(&models.User{}).Where("role = ?", scope.RoleSuperOperator).Count(&count).Error; err != nil {
        return err
    }
    if count > 0 {
        return nil
    }

    email := cfg.SuperEmail
    if email == "" {
        email = "super@example.com"
    }
    fullName := cfg.SuperFullName
    if fullName == "" {
        fullName = "Super Operator"
    }
    password := cfg.SuperPassword
    if password == "" {
        password = "super123"
    }
    hashed, err := utils.HashPassword(password)
    if err != nil {
        return err
    }

    super := models.User{
        FullName: fullName,
        Email:    email,
        Password: hashed,
        Role:     scope.RoleSuperOperator,
        Active:   true,
        Approved: true,
    }
    if err := db.Create(&super).Error; err != nil {
        return err
    }
    logger.WithField("email", email).Info("seeded initial super operator")
    return nil
}
