package model

import (
	"time"

	"gorm.io/gorm"
)

// Role controls what a user can see and change.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleMember     Role = "MEMBER"
	RoleTranslator Role = "TRANSLATOR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleMember, RoleTranslator:
		return true
	}
	return false
}

// CanManageFamily is true for roles allowed to administer other members.
func (r Role) CanManageFamily() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleManager
}

type UserStatus string

const (
	StatusActive  UserStatus = "ACTIVE"
	StatusPending UserStatus = "PENDING"
	StatusBlocked UserStatus = "BLOCKED"
)

// User is an account; family members share a FamilyID.
type User struct {
	ID                 string     `gorm:"primaryKey" json:"id"`
	Username           string     `gorm:"uniqueIndex" json:"username"`
	PasswordHash       string     `json:"-"`
	Name               string     `json:"name"`
	Email              string     `json:"email,omitempty"`
	Role               Role       `json:"role"`
	Avatar             string     `json:"avatar,omitempty"`
	Status             UserStatus `json:"status"`
	CreatedBy          *string    `json:"createdBy,omitempty"`
	FamilyID           *string    `gorm:"index" json:"familyId,omitempty"`
	BirthDate          *string    `json:"birthDate,omitempty"` // YYYY-MM-DD
	AllowParentView    bool       `json:"allowParentView"`
	SecurityQuestion   string     `json:"securityQuestion,omitempty"`
	SecurityAnswerHash string     `json:"-"`
	TelegramChatID     *int64     `json:"-"`
	TelegramLinkCode   *string    `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Family groups users.
type Family struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (f *Family) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
