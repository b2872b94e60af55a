// Package supervisor boots the serving stack inside a container and lives
// exactly as long as every process it started. It is structured into small
// files by concern:
//
//   - supervisor.go: Supervisor type, options, the two start modes.
//   - group.go: the tracked process set and best-effort signal fan-out.
//   - wait.go: the wait-for-any-child loop.
//   - signals.go: termination handler, installed before the first spawn.
//   - archive.go: the model archiver invocation.
//   - events.go, eventpub_memory.go, eventpub_log.go: lifecycle events.
//   - metrics.go: Prometheus counters.
//   - errors.go: error types and helpers.
//
// The package relies on POSIX process semantics (wait4, SIGQUIT) and only
// builds on unix platforms.
package supervisor
