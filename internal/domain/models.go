// Package domain defines the persistence models for overlay content entries,
// their audit trail, and compile runs. These types are mapped with GORM and
// form the core data layer of the overlay backend.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle state of a content entry.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusDeprecated:
		return true
	}
	return false
}

// Domain is one of the fixed root domains an entry belongs to.
type Domain string

const (
	DomainPersonas    Domain = "Personas"
	DomainAbilities   Domain = "Abilities"
	DomainMinistries  Domain = "Ministries"
	DomainModels      Domain = "Models"
	DomainGuardrails  Domain = "Guardrails"
	DomainLanguages   Domain = "Languages"
	DomainScripture   Domain = "Scripture"
	DomainCampaigns   Domain = "Campaigns"
	DomainCommunities Domain = "Communities"
	DomainObjects     Domain = "Objects"
	DomainUsers       Domain = "Users"
	DomainSystem      Domain = "System"
)

// Domains lists every root domain in declaration order.
var Domains = []Domain{
	DomainPersonas, DomainAbilities, DomainMinistries, DomainModels,
	DomainGuardrails, DomainLanguages, DomainScripture, DomainCampaigns,
	DomainCommunities, DomainObjects, DomainUsers, DomainSystem,
}

// Valid reports whether d is one of the root domains.
func (d Domain) Valid() bool {
	for _, x := range Domains {
		if d == x {
			return true
		}
	}
	return false
}

// ScopeLevel places an entry in the shared or individual tier.
type ScopeLevel string

const (
	ScopeShared     ScopeLevel = "shared"
	ScopeIndividual ScopeLevel = "individual"
)

// Valid reports whether l is a known scope level.
func (l ScopeLevel) Valid() bool { return l == ScopeShared || l == ScopeIndividual }

// GuardrailLevel is the strictness attached to an entry.
type GuardrailLevel string

const (
	GuardrailLow    GuardrailLevel = "low"
	GuardrailMedium GuardrailLevel = "medium"
	GuardrailHigh   GuardrailLevel = "high"
)

// Valid reports whether g is a known guardrail level.
func (g GuardrailLevel) Valid() bool {
	return g == GuardrailLow || g == GuardrailMedium || g == GuardrailHigh
}

// Scope determines where in the inheritance hierarchy an entry applies.
// SubKey names the individual for individual-tier entries.
type Scope struct {
	Level     ScopeLevel `json:"level"      gorm:"type:varchar(16);not null;index:idx_entry_scope,priority:2"`
	DomainKey string     `json:"domain_key" gorm:"type:varchar(128);not null;index:idx_entry_scope,priority:3"`
	SubKey    string     `json:"sub_key"    gorm:"type:varchar(128);not null;default:''"`
}

// Associations are cross-cutting tags, independent of scope.
type Associations struct {
	Personas   []string `json:"personas"`
	Abilities  []string `json:"abilities"`
	Ministries []string `json:"ministries"`
	Models     []string `json:"models"`
	Languages  []string `json:"languages"`
}

// Normalized returns a copy with nil slices replaced by empty ones so that
// "null" and "[]" serialize identically.
func (a Associations) Normalized() Associations {
	fix := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	return Associations{
		Personas:   fix(a.Personas),
		Abilities:  fix(a.Abilities),
		Ministries: fix(a.Ministries),
		Models:     fix(a.Models),
		Languages:  fix(a.Languages),
	}
}

// Guardrails carries the guardrail strictness of an entry.
type Guardrails struct {
	Level GuardrailLevel `json:"level" gorm:"type:varchar(8);not null;default:'medium'"`
}

// Version is maintained by the authoring workflow; it is never derived here.
type Version struct {
	Major int `json:"major" gorm:"not null;default:1"`
	Minor int `json:"minor" gorm:"not null;default:0"`
}

// ContentEntry is one authored, scoped unit of overlay content.
//
// Fields:
//   - ID: UUID primary key (char(36)), immutable.
//   - Scope: embedded as scope_level / scope_domain_key / scope_sub_key.
//   - Associations: a single JSON column.
//   - ContentHash / MetadataHash: recomputed on every write touching them.
//   - SupersededBy: id of the replacing entry; never cleared once set.
type ContentEntry struct {
	ID             string                           `json:"id"              gorm:"type:char(36);primaryKey"`
	Title          string                           `json:"title"           gorm:"type:varchar(255);not null"`
	Status         Status                           `json:"status"          gorm:"type:varchar(16);not null;index;check:status IN ('draft','active','deprecated')"`
	Content        string                           `json:"content"         gorm:"type:text;not null"`
	Domain         Domain                           `json:"domain"          gorm:"type:varchar(32);not null;index:idx_entry_scope,priority:1"`
	Scope          Scope                            `json:"scope"           gorm:"embedded;embeddedPrefix:scope_"`
	Associations   datatypes.JSONType[Associations] `json:"associations"`
	Guardrails     Guardrails                       `json:"guardrails"      gorm:"embedded;embeddedPrefix:guardrail_"`
	Version        Version                          `json:"version"         gorm:"embedded;embeddedPrefix:version_"`
	AuthoringNotes string                           `json:"authoring_notes" gorm:"type:text"`
	ContentHash    string                           `json:"content_hash"    gorm:"type:char(64);not null"`
	MetadataHash   string                           `json:"metadata_hash"   gorm:"type:char(64);not null"`
	CreatedAt      time.Time                        `json:"created_at"      gorm:"index"`
	UpdatedAt      time.Time                        `json:"updated_at"`
	SupersededBy   *string                          `json:"superseded_by,omitempty" gorm:"type:char(36)"`
}

// TableName returns the database table name for ContentEntry.
func (ContentEntry) TableName() string { return "content_entries" }

// Assoc returns the decoded associations with nil slices normalized.
func (e *ContentEntry) Assoc() Associations {
	return e.Associations.Data().Normalized()
}

// Rehash recomputes both hashes from the current field values.
func (e *ContentEntry) Rehash() {
	e.ContentHash = ContentHash(e.Content)
	e.MetadataHash = MetadataHash(e.Title, e.Domain, e.Scope, e.Assoc(), e.Guardrails)
}

// AuditAction names the mutation an audit row records.
type AuditAction string

const (
	AuditCreated         AuditAction = "created"
	AuditMetadataUpdated AuditAction = "metadata_updated"
	AuditContentUpdated  AuditAction = "content_updated"
	AuditStatusChanged   AuditAction = "status_changed"
	AuditSoftDeleted     AuditAction = "soft_deleted"
	AuditSuperseded      AuditAction = "superseded"
	AuditSupersedes      AuditAction = "supersedes"
	AuditHardDeleted     AuditAction = "hard_deleted"
)

// AuditLogEntry is an append-only record of one state-changing operation.
// It has no foreign key to content_entries; rows outlive a hard delete of
// the entry they describe.
type AuditLogEntry struct {
	ID         uint        `json:"id"                    gorm:"primaryKey;autoIncrement"`
	EntryID    string      `json:"entry_id"              gorm:"type:char(36);not null;index:idx_audit_entry"`
	Action     AuditAction `json:"action"                gorm:"type:varchar(32);not null"`
	Actor      *string     `json:"actor,omitempty"       gorm:"type:varchar(128)"`
	BeforeHash *string     `json:"before_hash,omitempty" gorm:"type:char(64)"`
	AfterHash  *string     `json:"after_hash,omitempty"  gorm:"type:char(64)"`
	Details    string      `json:"details,omitempty"     gorm:"type:text"`
	CreatedAt  time.Time   `json:"timestamp"`
}

// TableName returns the database table name for AuditLogEntry.
func (AuditLogEntry) TableName() string { return "overlay_audit_log" }

// CompileRun is the persisted summary of one compile pass.
type CompileRun struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	Mode            string         `json:"mode"             gorm:"type:varchar(16);not null"` // full|targeted
	StartedAt       time.Time      `json:"started_at"       gorm:"index"`
	FinishedAt      time.Time      `json:"finished_at"`
	NewEntries      int            `json:"new_entries"`
	ReEmbedded      int            `json:"re_embedded"`
	UpdatedMetadata int            `json:"updated_metadata"`
	Unchanged       int            `json:"unchanged"`
	SoftDeleted     int            `json:"soft_deleted"`
	Purged          int            `json:"purged"`
	ErrorCount      int            `json:"error_count"`
	Errors          datatypes.JSON `json:"errors"           gorm:"type:json"`
}

// TableName returns the database table name for CompileRun.
func (CompileRun) TableName() string { return "compile_runs" }
