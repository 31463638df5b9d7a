// internal/packs/catalog.go
package packs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jason-s-yu/promptparty/internal/models"
)

//go:embed default.json
var defaultCatalog []byte

// compactFile is the json-against-humanity compact layout: card texts are stored once in
// top-level arrays and packs refer to them by index.
type compactFile struct {
	White []string `json:"white"`
	Black []struct {
		Text string `json:"text"`
		Pick int    `json:"pick"`
	} `json:"black"`
	Packs []struct {
		Abbr     string `json:"abbr"`
		Name     string `json:"name"`
		Official bool   `json:"official"`
		White    []int  `json:"white"`
		Black    []int  `json:"black"`
	} `json:"packs"`
}

// Catalog is an immutable set of packs keyed by abbreviation.
type Catalog struct {
	packs map[string]models.Pack
	info  []models.PackInfo
}

// Load decodes a catalog in the compact format.
func Load(r io.Reader) (*Catalog, error) {
	var f compactFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode pack catalog: %w", err)
	}

	c := &Catalog{packs: make(map[string]models.Pack, len(f.Packs))}
	for _, raw := range f.Packs {
		if raw.Abbr == "" {
			return nil, fmt.Errorf("pack %q has no abbreviation", raw.Name)
		}
		if _, dup := c.packs[raw.Abbr]; dup {
			return nil, fmt.Errorf("duplicate pack %q", raw.Abbr)
		}
		p := models.Pack{Abbr: raw.Abbr, Name: raw.Name, Official: raw.Official}
		for _, i := range raw.Black {
			if i < 0 || i >= len(f.Black) {
				return nil, fmt.Errorf("pack %q: prompt index %d out of range", raw.Abbr, i)
			}
			p.Prompts = append(p.Prompts, models.PackPrompt{Text: f.Black[i].Text, Pick: f.Black[i].Pick})
		}
		for _, i := range raw.White {
			if i < 0 || i >= len(f.White) {
				return nil, fmt.Errorf("pack %q: response index %d out of range", raw.Abbr, i)
			}
			p.Responses = append(p.Responses, f.White[i])
		}
		c.packs[p.Abbr] = p
		c.info = append(c.info, models.PackInfo{
			Abbr:           p.Abbr,
			Name:           p.Name,
			Official:       p.Official,
			PromptsCount:   len(p.Prompts),
			ResponsesCount: len(p.Responses),
		})
	}

	// official packs first, bigger packs first
	sort.SliceStable(c.info, func(i, j int) bool {
		a, b := c.info[i], c.info[j]
		if a.Official != b.Official {
			return a.Official
		}
		return a.ResponsesCount > b.ResponsesCount
	})
	return c, nil
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Default returns the catalog bundled with the binary.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("bundled pack catalog: %v", err))
	}
	return c
}

// Pack implements game.PackSource.
func (c *Catalog) Pack(abbr string) (models.Pack, bool) {
	p, ok := c.packs[abbr]
	return p, ok
}

// List returns the public pack listing, official packs first, then by response count.
func (c *Catalog) List() []models.PackInfo {
	return append([]models.PackInfo(nil), c.info...)
}
