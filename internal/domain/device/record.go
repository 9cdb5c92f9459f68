// Package device defines the provisioning record, its audit trail, and
// the closed result vocabulary of the claim/unclaim/revoke/reactivate
// transitions.
package device

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status is the lifecycle state of a provisioned device. Ownership
// (claimed / unclaimed) is orthogonal and only applies while active.
type Status string

const (
	StatusActive      Status = "active"
	StatusRevoked     Status = "revoked"
	StatusFactoryOnly Status = "factory_only"
)

const (
	// ThingNamePrefix derives the IoT thing name from the serial.
	ThingNamePrefix = "autowatering-"

	maxMetadataKeys   = 32
	maxMetadataKeyLen = 64
)

var hwIDPattern = regexp.MustCompile(`^[A-Z0-9_-]{8,64}$`)

// AuditEntry is an immutable, append-only record of a state-changing
// action. Entries are never mutated or removed.
type AuditEntry struct {
	Action    string         `json:"action"`
	ActorUID  string         `json:"actorUid"`
	Timestamp time.Time      `json:"timestamp"`
	Reason    string         `json:"reason,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Audit actions recorded on the trail.
const (
	ActionClaim      = "claim"
	ActionUnclaim    = "unclaim"
	ActionRevoke     = "revoke"
	ActionReactivate = "reactivate"
)

// Record is the provisioning record for one physical device, keyed by
// hardware id. Records are created once at factory time and never
// deleted.
type Record struct {
	HWID       string         `json:"hwId"`
	Serial     string         `json:"serial"`
	SerialSeq  int64          `json:"serialSeq"`
	ThingName  string         `json:"thingName"`
	Status     Status         `json:"status"`
	ClaimedBy  string         `json:"claimedByUid,omitempty"`
	ClaimedAt  *time.Time     `json:"claimedAt,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	AuditTrail []AuditEntry   `json:"auditTrail,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// NewRecord builds a fresh record for a validated hardware id and an
// allocated serial sequence number.
func NewRecord(hwID string, serialSeq int64, serial string, metadata map[string]any, now time.Time) *Record {
	return &Record{
		HWID:      hwID,
		Serial:    serial,
		SerialSeq: serialSeq,
		ThingName: ThingNamePrefix + serial,
		Status:    StatusActive,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsClaimed reports whether the device is actively owned.
func (r *Record) IsClaimed() bool {
	return r.ClaimedBy != ""
}

// FromJSON decodes a stored record body.
func FromJSON(body json.RawMessage) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ToJSON encodes the record for storage.
func (r *Record) ToJSON() (json.RawMessage, error) {
	return json.Marshal(r)
}

// NormalizeHWID upper-cases and validates a hardware id. Ids are
// 8-64 character uppercase hex/identifier strings.
func NormalizeHWID(hwID string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(hwID))
	if !hwIDPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid hardware id %q", hwID)
	}
	return normalized, nil
}

// ValidateMetadata bounds the factory metadata map: at most
// 32 keys, keys up to 64 characters, values limited to strings, numbers,
// and booleans.
func ValidateMetadata(metadata map[string]any) error {
	if len(metadata) > maxMetadataKeys {
		return fmt.Errorf("metadata has %d keys, limit is %d", len(metadata), maxMetadataKeys)
	}
	for key, value := range metadata {
		if len(key) == 0 || len(key) > maxMetadataKeyLen {
			return fmt.Errorf("metadata key %q exceeds %d characters", key, maxMetadataKeyLen)
		}
		switch value.(type) {
		case string, bool, int, int64, float64, json.Number:
		default:
			return fmt.Errorf("metadata key %q has unsupported value type %T", key, value)
		}
	}
	return nil
}
