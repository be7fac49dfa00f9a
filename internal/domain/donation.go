package domain

import "time"

// Contact Model. A new row is written with every donation; the latest row
// is what the profile and certificate show.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"contact_id"`  // Primary key
	UserID    uint      `gorm:"index;not null" json:"user_id"` // Foreign key to User
	FullName  string    `gorm:"size:100;not null" json:"full_name"`
	Address   string    `gorm:"size:150;not null" json:"address"`
	Country   string    `gorm:"size:50;not null" json:"country"`
	AboutMe   string    `gorm:"size:255;not null" json:"about_me"`
	CreatedAt time.Time `json:"created_at"`
}

// Donation Model
type Donation struct {
	ID            uint      `gorm:"primaryKey" json:"donation_id"` // Primary key
	UserID        uint      `gorm:"index;not null" json:"user_id"` // Foreign key to User
	Amount        float64   `gorm:"not null;default:0" json:"amount"`
	TreeSpecies   string    `gorm:"size:100;not null" json:"tree_species"`
	NumberOfTrees int       `gorm:"not null" json:"number_of_trees"`
	RegionToPlant string    `gorm:"size:100;not null" json:"region_to_plant"`
	Description   string    `gorm:"size:255;not null" json:"description"`
	GetCertified  bool      `gorm:"not null;default:false" json:"get_certified"`
	CreatedAt     time.Time `json:"timestamp"`
	Payment       *Payment  `gorm:"constraint:OnDelete:CASCADE;" json:"payment,omitempty"` // Credit leg
}

// Payment Model: the credit of a donation into the platform wallet
type Payment struct {
	ID         uint      `gorm:"primaryKey" json:"payment_id"`                  // Primary key
	WalletID   string    `gorm:"type:char(36);index;not null" json:"wallet_id"` // Foreign key to Wallet
	DonationID uint      `gorm:"uniqueIndex;not null" json:"donation_id"`       // Foreign key to Donation, one payment each
	Amount     float64   `gorm:"not null" json:"amount"`
	CreatedAt  time.Time `json:"timestamp"`
}
