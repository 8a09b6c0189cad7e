// Package alarm contains core domain types for the notification business logic.
//
// It defines Event (one alarm occurrence included in a notification batch),
// User (the notified recipient with contact information) and AckMeta (who
// acknowledged a batch and when), with Clone helpers to avoid leaking internal
// references.
package alarm
