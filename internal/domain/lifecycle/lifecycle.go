// Package lifecycle holds shared start/stop constants for fx lifecycle hooks.
package lifecycle

import "time"

// DefaultTimeout bounds a single OnStart or OnStop hook.
const DefaultTimeout = 10 * time.Second
