package domain

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddingDimensions is the pipeline-wide embedding length. Every stored
// peptide vector and every query vector has exactly this many components.
const EmbeddingDimensions = 768

// Peptide is an entity record in the semantic store. Name is unique
// case-insensitively.
type Peptide struct {
	ID             string
	Name           string
	Overview       string
	Mechanism      string
	ResearchFields []string
	FullText       string
	Embedding      []float32
	CreatedAt      time.Time
}

// NewPeptide creates a new Peptide instance. FullText is derived from the
// descriptive fields and is the text that gets embedded.
func NewPeptide(id, name, overview, mechanism string, researchFields []string, createdAt time.Time) *Peptide {
	p := &Peptide{
		ID:             id,
		Name:           name,
		Overview:       overview,
		Mechanism:      mechanism,
		ResearchFields: researchFields,
		CreatedAt:      createdAt,
	}
	p.FullText = p.ToText()
	return p
}

// ToText renders the record as the single block of text used for embedding
// and as LLM context.
func (p *Peptide) ToText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Peptide: %s\n", p.Name)
	if p.Overview != "" {
		fmt.Fprintf(&b, "Overview: %s\n", p.Overview)
	}
	if p.Mechanism != "" {
		fmt.Fprintf(&b, "Mechanism of action: %s\n", p.Mechanism)
	}
	if len(p.ResearchFields) > 0 {
		fmt.Fprintf(&b, "Potential research fields: %s\n", strings.Join(p.ResearchFields, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ValidatePeptide validates a Peptide instance
func ValidatePeptide(p *Peptide) error {
	if p == nil {
		return fmt.Errorf("peptide cannot be nil")
	}
	if p.ID == "" {
		return fmt.Errorf("peptide ID is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("peptide Name is required")
	}
	if p.Overview == "" {
		return fmt.Errorf("peptide Overview is required")
	}
	if p.Embedding != nil && len(p.Embedding) != EmbeddingDimensions {
		return fmt.Errorf("peptide Embedding must have %d dimensions, got %d", EmbeddingDimensions, len(p.Embedding))
	}
	return nil
}
