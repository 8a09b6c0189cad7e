// Package config defines notification profile settings and provides helpers
// to load, validate and save them in YAML format.
//
// The Config type holds the gateway URL, message templates, timing knobs and
// the optional audit/acknowledgment integration points of one profile.
package config
