package model

import (
	"time"
)

// Contract is the persisted data-sharing agreement: the YAML document lives in
// the object store, the rest of the fields form the metadata record.
type Contract struct {
	ContractID  string    `json:"contract_id"`
	Owner       string    `json:"owner"`
	Status      string    `json:"status"`
	CreatedTime time.Time `json:"created_time"`
	UpdatedTime time.Time `json:"updated_time"`
	S3Path      string    `json:"s3_path"`
	YAML        string    `json:"yaml,omitempty"`
}

// Contract status values. Nothing transitions to EXPIRED automatically; the
// value exists for callers that manage expiry themselves.
const (
	StatusDraft    = "DRAFT"
	StatusActive   = "ACTIVE"
	StatusViolated = "VIOLATED"
	StatusExpired  = "EXPIRED"
)

// ValidStatus reports whether s is one of the enumerated contract statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusActive, StatusViolated, StatusExpired:
		return true
	}
	return false
}

// ContractUpdate carries the mutable fields of an update request. Nil means
// "leave unchanged".
type ContractUpdate struct {
	Status *string `json:"status,omitempty"`
	YAML   *string `json:"yaml,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ContractUpdate) Empty() bool {
	return u.Status == nil && u.YAML == nil
}
