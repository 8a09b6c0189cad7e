// Package ack implements the send/acknowledge correlation engine.
//
// The Registry maps short numeric codes to pending notification batches and
// owns code uniqueness, sender validation and TTL eviction under a single
// lock. The Manager runs the two periodic tasks of one profile: polling the
// SMS gateway for inbound replies and sweeping orphaned entries.
package ack
