// Package tstate compensates for firmware that rewrites per-CPU
// throttle-state registers across a suspend cycle. On some platforms the
// firmware throttles the register during suspend-to-RAM and the normal
// recovery path (thermal-zone re-evaluation) never runs for CPUs outside any
// thermal zone, leaving them throttled until reboot.
//
// The Compensator subscribes to the power-transition bus: on pre-suspend it
// captures the register of every online CPU, on post-resume it writes the
// captured values back, each access dispatched pinned to the owning CPU and
// completed before the thermal host's own re-evaluation runs. Files by
// concern:
//
//   - compensator.go: Compensator, Attach, the save/restore passes.
//   - metrics.go: prometheus counters for passes and per-CPU failures.
//
// Per-CPU failures are logged and skipped, never propagated: a CPU left
// uncompensated resumes throttled and is picked up on the next cycle, which
// beats blocking the machine's resume path.
package tstate
