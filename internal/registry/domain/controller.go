package domain

import "time"

// Controller is a privileged identity authorized to perform governance
// operations against the registry.
type Controller struct {
	Address string
	AddedAt time.Time
}
