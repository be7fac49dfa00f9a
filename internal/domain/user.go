package domain

import "time"

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`                                                  // Primary key
	Username       string     `gorm:"size:50;uniqueIndex;not null" json:"username"`                          // Unique username
	Email          string     `gorm:"size:255;uniqueIndex;not null" json:"email"`                            // Unique email
	Password       string     `gorm:"not null" json:"-"`                                                     // Hashed password
	Role           string     `gorm:"size:20;default:user" json:"role"`                                      // Role: user or admin
	EmailConfirm   bool       `gorm:"not null;default:false" json:"email_confirm"`                           // Email verified
	EmailConfirmAt *time.Time `json:"email_confirm_at,omitempty"`                                            // When the email was verified
	CreatedAt      time.Time  `json:"created_date"`                                                          // Registration time
	Wallet         *Wallet    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"wallet,omitempty"` // One-to-one wallet
	Contacts       []Contact  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`                // Contact snapshots
	Donations      []Donation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`                // Donations made
}

// Confirm marks the email as verified. Verification is one-way; it reports
// false when the user was already verified.
func (u *User) Confirm(at time.Time) bool {
	if u.EmailConfirm {
		return false
	}
	u.EmailConfirm = true
	u.EmailConfirmAt = &at
	return true
}
