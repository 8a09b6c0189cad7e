// Package bridge implements the notification profile: the outbound dispatch
// path that formats an alarm batch into SMS-sized chunks and pushes them
// through the gateway, the HTTP API the alarm source calls to trigger a
// notification, and the process entrypoint wiring config, registry, poller
// and reaper together.
package bridge
