// Package audit writes fire-and-forget audit records for notification
// attempts. Recording failures are logged and never propagated, so auditing
// can never fail a send.
package audit
