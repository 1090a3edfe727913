// Package driving defines the interfaces the outside world calls into
// the core through: Pipeline (one refresh run), Scheduler (the periodic
// runner), SettingsService, and ReportService. The cobra commands and
// the TUI consume these; the implementations live in
// internal/core/services.
package driving
