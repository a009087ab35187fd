package challenge

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// Template is a challenge blueprint from the catalog. Instances are stamped
// from templates at cycle start; the engine reads only structural fields.
type Template struct {
	ID          string `toml:"id"`
	Category    string `toml:"category"`
	Type        string `toml:"type"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Requirement int    `toml:"requirement"`
	XP          int    `toml:"xp"`

	// Area pins specific_area templates.
	Area string `toml:"area"`

	// StartHour/EndHour bound time_of_day templates.
	StartHour int `toml:"start_hour"`
	EndHour   int `toml:"end_hour"`
}

// Validate checks template invariants.
func (t Template) Validate() error {
	if t.ID == "" {
		return shared.NewDomainError("challenge", "Template.Validate", shared.ErrEmptyValue, "template id is required")
	}
	if !Category(t.Category).IsValid() {
		return shared.NewDomainError("challenge", "Template.Validate", shared.ErrInvalidInput,
			fmt.Sprintf("template %s: unknown category %q", t.ID, t.Category))
	}
	if !Type(t.Type).IsValid() {
		return shared.NewDomainError("challenge", "Template.Validate", shared.ErrInvalidInput,
			fmt.Sprintf("template %s: unknown type %q", t.ID, t.Type))
	}
	if t.Requirement <= 0 {
		return shared.NewDomainError("challenge", "Template.Validate", shared.ErrNegativeValue,
			fmt.Sprintf("template %s: requirement must be positive", t.ID))
	}
	if t.XP <= 0 {
		return shared.NewDomainError("challenge", "Template.Validate", shared.ErrNegativeValue,
			fmt.Sprintf("template %s: xp must be positive", t.ID))
	}
	if Type(t.Type) == TypeSpecificArea && t.Area == "" {
		return shared.NewDomainError("challenge", "Template.Validate", shared.ErrEmptyValue,
			fmt.Sprintf("template %s: specific_area requires an area", t.ID))
	}
	if Type(t.Type) == TypeTimeOfDay && (t.StartHour < 0 || t.EndHour > 24 || t.StartHour >= t.EndHour) {
		return shared.NewDomainError("challenge", "Template.Validate", shared.ErrInvalidInput,
			fmt.Sprintf("template %s: invalid hour window [%d, %d)", t.ID, t.StartHour, t.EndHour))
	}
	return nil
}

type templateFile struct {
	Templates []Template `toml:"template"`
}

//go:embed data/templates.toml
var defaultTemplateData []byte

// DefaultPool returns the embedded template catalog.
func DefaultPool() ([]Template, error) {
	return ParsePool(defaultTemplateData)
}

// ParsePool parses and validates a TOML template catalog.
func ParsePool(data []byte) ([]Template, error) {
	var file templateFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("challenge", "ParsePool", shared.ErrInvalidInput, "invalid template catalog", err)
	}
	if len(file.Templates) == 0 {
		return nil, shared.NewDomainError("challenge", "ParsePool", shared.ErrEmptyValue, "template catalog is empty")
	}

	seen := make(map[string]bool, len(file.Templates))
	for _, t := range file.Templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if seen[t.ID] {
			return nil, shared.NewDomainError("challenge", "ParsePool", shared.ErrAlreadyExists,
				fmt.Sprintf("duplicate template id %q", t.ID))
		}
		seen[t.ID] = true
	}
	return file.Templates, nil
}

// poolByCategory groups templates for generation draws.
func poolByCategory(pool []Template) map[Category][]Template {
	byCat := make(map[Category][]Template)
	for _, t := range pool {
		cat := Category(t.Category)
		byCat[cat] = append(byCat[cat], t)
	}
	return byCat
}
