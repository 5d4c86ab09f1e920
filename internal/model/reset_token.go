package model

import "time"

// ResetToken is a single password-recovery attempt. The numeric code is what
// the user types in; the opaque token is only revealed after the code checks
// out and is the sole key for the final reset call.
type ResetToken struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}
