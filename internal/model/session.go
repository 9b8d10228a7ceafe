package model

import "time"

// DeviceSession binds an opaque cookie token to the role a device picked.
type DeviceSession struct {
	ID        int64     `json:"id"`
	Token     string    `json:"-"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
