package domain

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleMerchant UserRole = "merchant"
)

// User is a merchant account. Admins are users whose email is allow-listed
// or whose role is admin.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	CompanyName string     `json:"company_name"`
	Role        UserRole   `json:"role"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type UserWithPassword struct {
	User
	PasswordHash string `json:"password_hash"`
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Stats struct {
	Subscribers int   `json:"subscribers"`
	Views       int64 `json:"views"`
}
