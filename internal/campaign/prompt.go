package campaign

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var catalogYAML []byte

// Catalog is the brand voice and the fixed list of buyer personas the model
// chooses from.
type Catalog struct {
	Brand         string   `yaml:"brand"`
	Role          string   `yaml:"role"`
	Voice         string   `yaml:"voice"`
	Select        int      `yaml:"select"`
	HybridPersona string   `yaml:"hybrid_persona"`
	Personas      []string `yaml:"personas"`
}

// DefaultCatalog is parsed from the embedded personas.yaml.
var DefaultCatalog = mustLoadCatalog(catalogYAML)

// LoadCatalog parses a persona catalog document.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "campaign: parse persona catalog")
	}
	if len(c.Personas) == 0 {
		return nil, eris.New("campaign: persona catalog is empty")
	}
	if c.Select <= 0 || c.Select > len(c.Personas) {
		return nil, eris.Errorf("campaign: select must be between 1 and %d, got %d", len(c.Personas), c.Select)
	}
	return &c, nil
}

func mustLoadCatalog(data []byte) *Catalog {
	c, err := LoadCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// BuildPrompt composes the generation instruction for one product.
func (c *Catalog) BuildPrompt(title, description string, imageCount int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Role: %s.\n", c.Role)
	fmt.Fprintf(&b, "Brand Voice: %s\n", c.Voice)
	fmt.Fprintf(&b, "Product: %s\n", title)
	fmt.Fprintf(&b, "Specs: %s\n\n", description)

	b.WriteString("TASK:\n")
	fmt.Fprintf(&b, "1. Select TOP %d DISTINCT personas from the list below.\n", c.Select)
	fmt.Fprintf(&b, "2. Write %d separate captions, one per selected persona.\n", c.Select)
	fmt.Fprintf(&b, "3. Write 1 \"Master Hybrid\" caption that unifies all %d personas in one voice.\n", c.Select)
	if imageCount > 0 {
		fmt.Fprintf(&b, "4. %d product image(s) are attached. Ground every caption in what they show: silhouette, fabric, structure and detail.\n", imageCount)
	}

	fmt.Fprintf(&b, "\nPERSONAS: %s.\n\n", strings.Join(c.Personas, ", "))

	b.WriteString("Output Format (JSON Array only, no commentary):\n")
	b.WriteString("[\n")
	b.WriteString("    {\"persona\": \"Persona Name 1\", \"post\": \"Caption 1...\"},\n")
	b.WriteString("    ...\n")
	fmt.Fprintf(&b, "    {\"persona\": %q, \"post\": \"The unified master caption...\"}\n", c.HybridPersona)
	b.WriteString("]\n")

	return b.String()
}
