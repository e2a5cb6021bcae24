// Package domain defines the core entities of the undername registry: the
// controller set, reserved labels, label requests and their lifecycle,
// ownership rows, and the admission policy.
//
// Entities here are plain values. All mutation goes through the event
// application path in the state package; nothing in this package touches
// storage.
package domain
