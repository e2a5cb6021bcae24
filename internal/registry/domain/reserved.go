package domain

import "time"

// ReservedLabel is a name withheld from public request by controllers.
// When AssignedTo is non-empty, only that identity may claim the label.
type ReservedLabel struct {
	Label      string
	AssignedTo string
	CreatedAt  time.Time
}
