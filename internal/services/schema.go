package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
)

// schemaValidate is shared by every input schema. Field names in errors are
// the JSON names.
var schemaValidate *validator.Validate

func init() {
	schemaValidate = validator.New(validator.WithRequiredStructEnabled())
	schemaValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = schemaValidate.RegisterValidation("overlay_domain", func(fl validator.FieldLevel) bool {
		return domain.Domain(fl.Field().String()).Valid()
	})
}

// ScopeInput places a new entry in the hierarchy. SubKey is required for
// individual-tier entries.
type ScopeInput struct {
	Level     string `json:"level"      validate:"required,oneof=shared individual"`
	DomainKey string `json:"domain_key" validate:"required,max=128"`
	SubKey    string `json:"sub_key"    validate:"required_if=Level individual,max=128"`
}

// GuardrailsInput sets the guardrail strictness.
type GuardrailsInput struct {
	Level string `json:"level" validate:"required,oneof=low medium high"`
}

// VersionInput is the authoring workflow's version number.
type VersionInput struct {
	Major int `json:"major" validate:"gte=0"`
	Minor int `json:"minor" validate:"gte=0"`
}

// AssociationsInput lists cross-cutting tags.
type AssociationsInput struct {
	Personas   []string `json:"personas"   validate:"omitempty,dive,required,max=128"`
	Abilities  []string `json:"abilities"  validate:"omitempty,dive,required,max=128"`
	Ministries []string `json:"ministries" validate:"omitempty,dive,required,max=128"`
	Models     []string `json:"models"     validate:"omitempty,dive,required,max=128"`
	Languages  []string `json:"languages"  validate:"omitempty,dive,required,max=128"`
}

func (a *AssociationsInput) toDomain() domain.Associations {
	if a == nil {
		return domain.Associations{}.Normalized()
	}
	return domain.Associations{
		Personas:   a.Personas,
		Abilities:  a.Abilities,
		Ministries: a.Ministries,
		Models:     a.Models,
		Languages:  a.Languages,
	}.Normalized()
}

// CreateEntryInput is the schema for creating (or superseding with) an entry.
// Status defaults to draft, guardrails to medium, and version to 1.0.
type CreateEntryInput struct {
	Title          string             `json:"title"           validate:"required,max=255"`
	Content        string             `json:"content"         validate:"required"`
	Domain         string             `json:"domain"          validate:"required,overlay_domain"`
	Scope          ScopeInput         `json:"scope"`
	Status         string             `json:"status"          validate:"omitempty,oneof=draft active"`
	Associations   *AssociationsInput `json:"associations"`
	Guardrails     *GuardrailsInput   `json:"guardrails"`
	Version        *VersionInput      `json:"version"`
	AuthoringNotes string             `json:"authoring_notes"`
}

func (in *CreateEntryInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Domain = strings.TrimSpace(in.Domain)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	in.Scope.Level = strings.ToLower(strings.TrimSpace(in.Scope.Level))
	in.Scope.DomainKey = strings.TrimSpace(in.Scope.DomainKey)
	in.Scope.SubKey = strings.TrimSpace(in.Scope.SubKey)
	if strings.TrimSpace(in.Content) == "" {
		in.Content = ""
	}
}

// Validate normalizes whitespace and checks the schema.
func (in *CreateEntryInput) Validate() error {
	in.normalize()
	return translate(schemaValidate.Struct(in))
}

// MetadataPatch is the schema for updateMetadata. Only non-nil fields are
// applied; at least one must be set.
type MetadataPatch struct {
	Title          *string            `json:"title"           validate:"omitempty,max=255"`
	Associations   *AssociationsInput `json:"associations"`
	Guardrails     *GuardrailsInput   `json:"guardrails"`
	AuthoringNotes *string            `json:"authoring_notes"`
}

// Validate normalizes whitespace and checks the schema.
func (p *MetadataPatch) Validate() error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return invalid("title", "must not be empty")
		}
		p.Title = &t
	}
	if p.Title == nil && p.Associations == nil && p.Guardrails == nil && p.AuthoringNotes == nil {
		return invalid("", "no metadata fields to update")
	}
	return translate(schemaValidate.Struct(p))
}

// translate turns the first validator failure into a *ValidationError whose
// Field is the dotted JSON path (e.g. "scope.domain_key").
func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return &ValidationError{Field: field, Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required for individual scope"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "overlay_domain":
		return fmt.Sprintf("unknown domain %q", fe.Value())
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be >= " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
