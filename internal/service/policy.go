package service

import (
	"fmt"          // Messages
	"strings"      // Character checks
	"unicode"      // Letter classes
	"unicode/utf8" // Lengths in characters

	"eco_donate/internal/domain" // Validation errors
)

// Policy holds the input thresholds shared by every flow
type Policy struct {
	MinPasswordLength int // Minimum password length in characters
	MinTextLength     int // Minimum length of description and about-me texts
}

// DefaultPolicy is 8-character passwords and 20-character texts
func DefaultPolicy() Policy {
	return Policy{MinPasswordLength: 8, MinTextLength: 20}
}

// CheckPassword enforces confirmation match, minimum length and a mix of
// letters and digits
func (p Policy) CheckPassword(password, confirm string) error {
	if password != confirm {
		return domain.Validation("passwords do not match")
	}
	if utf8.RuneCountInString(password) < p.MinPasswordLength {
		return domain.Validation(fmt.Sprintf("password should be at least %d characters long", p.MinPasswordLength))
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return domain.Validation("password should contain both letters and digits")
	}
	return nil
}

// checkIdentity validates the shape of a username/email pair
func checkIdentity(username, email string) error {
	if username == "" || email == "" {
		return domain.Validation("kindly fill all fields")
	}
	if containsUpper(username) || containsUpper(email) {
		return domain.Validation("email and username must be lowercase")
	}
	if !strings.Contains(email, "@") || strings.Contains(username, "@") {
		return domain.Validation("invalid email or username")
	}
	if utf8.RuneCountInString(username) > 50 || utf8.RuneCountInString(email) > 255 {
		return domain.Validation("email or username is too long")
	}
	return nil
}

func containsUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// isAllUpper reports whether s has cased letters and all of them are upper case
func isAllUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

const (
	defaultPageSize = 20  // Page size when none is given
	maxPageSize     = 100 // Larger requests are clamped to this
)

// normalizePage applies the default page (1) and size, clamping the size to maxPageSize
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}
