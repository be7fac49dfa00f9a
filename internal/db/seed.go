package db

import (
	"errors"
	"time"

	"eco_donate/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedPlatformWallet makes sure the platform user and the wallet receiving
// donations exist. walletID may be empty, in which case a new id is
// generated; the returned id must then be configured as PLATFORM_WALLET_ID.
func SeedPlatformWallet(db *gorm.DB, walletID, username, email string) (string, error) {
	if walletID != "" {
		var w domain.Wallet
		err := db.Where("id = ?", walletID).First(&w).Error
		if err == nil {
			return w.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}

	var id string
	err := db.Transaction(func(tx *gorm.DB) error {
		var owner domain.User
		err := tx.Where("username = ?", username).First(&owner).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nobody signs in as the platform: the password is random and discarded
			hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			owner = domain.User{Username: username, Email: email, Password: string(hash), Role: domain.RoleUser}
			owner.Confirm(time.Now())
			if err := tx.Create(&owner).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		var existing domain.Wallet
		err = tx.Where("user_id = ?", owner.ID).First(&existing).Error
		if err == nil {
			if walletID != "" && existing.ID != walletID {
				return errors.New("platform user already owns wallet " + existing.ID)
			}
			id = existing.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		w := domain.NewWallet(owner.ID)
		if walletID != "" {
			w.ID = walletID
		}
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		id = w.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id": id,
		"username":  username,
	}).Info("Platform wallet ready")
	return id, nil
}
