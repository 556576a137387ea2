package models

import "time"

// PipelineState is the orchestrator's lifecycle state.
type PipelineState string

const (
	StateIdle    PipelineState = "idle"
	StateLoading PipelineState = "loading"
	StateReady   PipelineState = "ready"
	StateError   PipelineState = "error"
)

// CycleReport summarizes one pipeline run.
type CycleReport struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"duration"`
	Fetched        int           `json:"fetched"`
	Filtered       int           `json:"filtered"`
	Scored         int           `json:"scored"`
	Failed         int           `json:"failed"`
	Ranked         int           `json:"ranked"`
	Synthetic      bool          `json:"synthetic"`
	FallbackReason string        `json:"fallbackReason,omitempty"`
}

// Status is the read-only view of the orchestrator.
type Status struct {
	State      PipelineState `json:"state"`
	LastUpdate time.Time     `json:"lastUpdate"`
	LastError  string        `json:"lastError,omitempty"`
	Synthetic  bool          `json:"synthetic"`
	LastCycle  *CycleReport  `json:"lastCycle,omitempty"`
}

// Stats is the dashboard header summary.
type Stats struct {
	TotalCoins     int       `json:"totalCoins"`
	QualifiedCoins int       `json:"qualifiedCoins"`
	AverageScore   float64   `json:"averageScore"`
	LastUpdate     time.Time `json:"lastUpdate"`
}
