// Package simulator implements an in-memory stand-in for the external SMS
// gateway. It speaks the exact wire protocol the bridge expects (send payloads
// and the {"cmd":"read"} buffer drain) and adds endpoints to inject device
// replies and inspect sent messages, which makes end-to-end testing possible
// without hardware.
package simulator
