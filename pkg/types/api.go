package types

// TransitionRequest is the payload of POST /v1/transitions, normally sent by
// a systemd-sleep hook script.
type TransitionRequest struct {
	// Platform transition mode: suspend|hibernate|restore|resume|thaw.
	// example: suspend
	Mode string `json:"mode" example:"suspend"`
}

// TransitionResponse acknowledges a handled transition.
type TransitionResponse struct {
	// Mode as received.
	// example: suspend
	Mode string `json:"mode" example:"suspend"`
	// Bus event the mode collapsed to.
	// example: pre_suspend
	Event string `json:"event" example:"pre_suspend"`
}

// CPUStatus is one CPU's view in GET /v1/cpus.
type CPUStatus struct {
	// CPU index.
	// example: 0
	CPU int `json:"cpu" example:"0"`
	// Whether the CPU is currently online.
	// example: true
	Online bool `json:"online" example:"true"`
	// Compensation slot state: unsaved, saved, or restored.
	// example: saved
	SlotState string `json:"slot_state" example:"saved"`
	// Saved register value in hex; omitted while the slot is unsaved.
	// example: 0x10
	Value string `json:"value,omitempty" example:"0x10"`
}

// CPUsResponse wraps GET /v1/cpus.
type CPUsResponse struct {
	CPUs []CPUStatus `json:"cpus"`
}

// StatusResponse is returned by GET /v1/status.
type StatusResponse struct {
	// Whether the throttle register is accessible on this platform. When
	// false the daemon still accepts transitions but compensation is inert.
	// example: true
	RegisterSupported bool `json:"register_supported" example:"true"`
	// Set between a pre-suspend and the matching post-resume event.
	// example: false
	SuspendInProgress bool `json:"suspend_in_progress" example:"false"`
	// Last transition mode handled (empty before the first one).
	// example: resume
	LastMode string `json:"last_mode,omitempty" example:"resume"`
	// When the last transition was handled (unix seconds).
	// example: 1700000000
	LastTransitionUnix int64 `json:"last_transition_unix,omitempty" example:"1700000000"`
	// Transitions handled since startup.
	// example: 4
	TransitionsTotal uint64 `json:"transitions_total" example:"4"`
	// Completed register save passes.
	// example: 2
	SavePassesTotal uint64 `json:"save_passes_total" example:"2"`
	// Completed register restore passes.
	// example: 2
	RestorePassesTotal uint64 `json:"restore_passes_total" example:"2"`
	// Per-CPU accesses that failed and were skipped.
	// example: 0
	CPUFailuresTotal uint64 `json:"cpu_failures_total" example:"0"`
	// Currently online CPUs.
	// example: 8
	OnlineCPUs int `json:"online_cpus" example:"8"`
	// Highest possible CPU count on this platform.
	// example: 8
	PossibleCPUs int `json:"possible_cpus" example:"8"`
	// Uptime of the daemon in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
