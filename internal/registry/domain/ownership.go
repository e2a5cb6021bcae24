package domain

import "time"

// Ownership records the current holder of an undername. A label has at most
// one ownership row at any time.
type Ownership struct {
	Label     string
	Owner     string
	GrantedAt time.Time
}
