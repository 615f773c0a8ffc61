// Package ports defines the interfaces between the Pergola core and the
// outside world (document sources, restart caches), following the
// Ports & Adapters pattern. Implementations live under internal/adapters.
package ports
