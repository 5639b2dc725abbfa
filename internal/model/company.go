package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is the central registry record for one tenant. The database
// coordinates point at the tenant's own physical database and are immutable
// once provisioning has succeeded; changing them would orphan the database.
type Company struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	DatabaseHost string    `gorm:"type:varchar(100);not null;default:localhost" json:"database_host"`
	DatabasePort int       `gorm:"not null;default:5432" json:"database_port"`
	DatabaseName string    `gorm:"type:varchar(63);uniqueIndex;not null" json:"database_name"`
	DatabaseUser string    `gorm:"type:varchar(63);not null;default:postgres" json:"database_user"`
	DatabasePass string    `gorm:"type:varchar(255);not null" json:"-"`
	Active       bool      `gorm:"default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Users []User `gorm:"foreignKey:CompanyID" json:"-"`
}

// BeforeCreate assigns a UUID primary key when none was provided
func (co *Company) BeforeCreate(tx *gorm.DB) (err error) {
	if co.ID == "" {
		co.ID = uuid.New().String()
	}
	return nil
}
