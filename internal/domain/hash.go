package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ContentHash returns the hex SHA-256 of the entry body.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// metadataDoc fixes the field order of the hashed metadata document.
type metadataDoc struct {
	Title        string       `json:"title"`
	Domain       Domain       `json:"domain"`
	Scope        Scope        `json:"scope"`
	Associations Associations `json:"associations"`
	Guardrails   Guardrails   `json:"guardrails"`
}

// MetadataHash returns the hex SHA-256 of the canonical JSON encoding of the
// fields that describe an entry without its body. Authoring notes and
// version are not part of it.
func MetadataHash(title string, d Domain, scope Scope, assoc Associations, g Guardrails) string {
	b, _ := json.Marshal(metadataDoc{
		Title:        title,
		Domain:       d,
		Scope:        scope,
		Associations: assoc.Normalized(),
		Guardrails:   g,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
