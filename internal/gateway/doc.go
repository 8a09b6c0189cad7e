// Package gateway implements the JSON-over-HTTP protocol of the external SMS
// gateway: a send endpoint accepting {message, numbers, ackCode} and a read
// command draining the gateway's buffer of inbound replies.
package gateway
