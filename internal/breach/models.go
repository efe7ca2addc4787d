package breach

import (
	"time"

	"github.com/goldclear/clearing-api/internal/capital"
	"gorm.io/gorm"
)

// Family is a metric family swept independently for level transitions.
type Family string

const (
	FamilyECR      Family = "ECR"
	FamilyHardstop Family = "HARDSTOP"
	FamilyBuffer   Family = "BUFFER"
)

// EventType is the persisted breach event type.
type EventType string

const (
	EventECRCaution      EventType = "ECR_CAUTION"
	EventECRBreach       EventType = "ECR_BREACH"
	EventHardstopCaution EventType = "HARDSTOP_CAUTION"
	EventHardstopBreach  EventType = "HARDSTOP_BREACH"
	EventBufferNegative  EventType = "BUFFER_NEGATIVE"
)

// Severity grades an event for operator triage.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityCritical Severity = "CRITICAL"
)

// Event is an append-only record of a transition into a breach
// condition. SnapshotJSON embeds the capital snapshot captured at the
// moment of the transition.
type Event struct {
	gorm.Model   `json:"-"`
	EventID      string    `gorm:"uniqueIndex" json:"event_id"`
	Type         EventType `gorm:"index" json:"type"`
	Family       Family    `gorm:"index" json:"family"`
	Level        string    `json:"level"`
	Severity     Severity  `json:"severity"`
	OccurredAt   time.Time `json:"occurred_at"`
	SnapshotJSON string    `json:"snapshot_json"`
	Message      string    `json:"message"`
}

// State is the last known level per family. It also records drops back
// to CLEAR, which is what lets a genuine re-entry above a threshold
// emit a fresh event while steady state stays silent.
type State struct {
	gorm.Model `json:"-"`
	Family     Family    `gorm:"uniqueIndex" json:"family"`
	LastLevel  string    `json:"last_level"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// familyLevel derives the family's level from a snapshot.
func familyLevel(family Family, snap *capital.Snapshot, params capital.Params) capital.Level {
	switch family {
	case FamilyECR:
		switch {
		case snap.ECRBps >= params.ECRBreachBps:
			return capital.LevelBreach
		case snap.ECRBps >= params.ECRCautionBps:
			return capital.LevelCaution
		}
	case FamilyHardstop:
		switch {
		case snap.HardstopUtilBps >= params.HardstopBreachBps:
			return capital.LevelBreach
		case snap.HardstopUtilBps >= params.HardstopCautionBps:
			return capital.LevelCaution
		}
	case FamilyBuffer:
		if snap.BufferVsTVaR99Minor < 0 {
			return capital.LevelBreach
		}
	}
	return capital.LevelClear
}

// eventFor maps a family and level to an event type and severity.
// CLEAR maps to no event; only entries into caution or breach are
// persisted.
func eventFor(family Family, level capital.Level) (EventType, Severity, bool) {
	switch family {
	case FamilyECR:
		switch level {
		case capital.LevelCaution:
			return EventECRCaution, SeverityWarn, true
		case capital.LevelBreach:
			return EventECRBreach, SeverityCritical, true
		}
	case FamilyHardstop:
		switch level {
		case capital.LevelCaution:
			return EventHardstopCaution, SeverityWarn, true
		case capital.LevelBreach:
			return EventHardstopBreach, SeverityCritical, true
		}
	case FamilyBuffer:
		if level == capital.LevelBreach {
			return EventBufferNegative, SeverityCritical, true
		}
	}
	return "", SeverityInfo, false
}
