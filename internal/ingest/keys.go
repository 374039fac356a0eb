package ingest

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key prefixes for each record family.
const (
	PrefixTelemetry = "telemetry:"
	PrefixAlert     = "alert:"
	PrefixMission   = "mission:"
	PrefixComm      = "comm:"
)

// ISOLayout is the millisecond UTC layout used in keys and timestamps.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// ISOTime formats t in UTC with millisecond precision.
func ISOTime(t time.Time) string { return t.UTC().Format(ISOLayout) }

func TelemetryKey(unitID string, t time.Time) string {
	return PrefixTelemetry + unitID + ":" + ISOTime(t)
}

func AlertKey(t time.Time, suffix string) string {
	return PrefixAlert + ISOTime(t) + ":" + suffix
}

func CommKey(from, to string, t time.Time) string {
	return PrefixComm + from + ":" + to + ":" + ISOTime(t)
}

func MissionKey(missionID string) string { return PrefixMission + missionID }

// NewSuffix returns a 9 character random suffix for alert keys.
func NewSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
