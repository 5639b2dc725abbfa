package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User roles recognized by the permission model
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a central registry user. Each user belongs to exactly one Company
// and is mirrored into that company's tenant database as a ClientUser row
// correlated by mainId = User.ID.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Email     string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never plaintext
	Role      string    `gorm:"type:varchar(20);not null;default:user" json:"role"`
	CompanyID string    `gorm:"type:uuid;index;not null" json:"company_id"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"-"`
}

// BeforeCreate assigns a UUID primary key when none was provided
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// SetPassword hashes the plaintext password with bcrypt and stores the hash
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword compares a plaintext password against the stored hash
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
