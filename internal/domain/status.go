package domain

// SchedulerStatus es el estado del scheduler de recolección del backend. El
// backend devuelve un objeto libre; solo "enabled" e "isRunning" se interpretan.
type SchedulerStatus struct {
	Enabled bool
	Running bool
	Fields  map[string]any
}
