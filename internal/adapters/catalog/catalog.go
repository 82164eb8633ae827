// Package catalog loads a place catalog from YAML and serves it as a candidate supplier.
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	memplacesupply "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/placesupply"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

// File is the on-disk catalog layout.
type File struct {
	Places []PlaceEntry `yaml:"places"`
}

type PlaceEntry struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Category  string   `yaml:"category"`
	PriceTier string   `yaml:"price_tier"`
	Address   string   `yaml:"address"`
	Province  string   `yaml:"province"`
	City      string   `yaml:"city"`
	Lat       *float64 `yaml:"lat"`
	Lng       *float64 `yaml:"lng"`
	EntryFee  int64    `yaml:"entry_fee"`
}

// Load reads a YAML catalog file.
func Load(path string) (*memplacesupply.Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	c, err := Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog. Unknown fields are rejected so typos surface early.
func Parse(r io.Reader) (*memplacesupply.Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return memplacesupply.NewCatalog(), nil
		}
		return nil, err
	}

	places := make([]domain.Place, 0, len(f.Places))
	seen := make(map[string]struct{}, len(f.Places))
	for i, e := range f.Places {
		p, err := e.toDomain()
		if err != nil {
			return nil, fmt.Errorf("places[%d]: %w", i, err)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("places[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = struct{}{}
		places = append(places, p)
	}
	return memplacesupply.NewCatalog(places...), nil
}

func (e PlaceEntry) toDomain() (domain.Place, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return domain.Place{}, fmt.Errorf("missing id")
	}
	if (e.Lat == nil) != (e.Lng == nil) {
		return domain.Place{}, fmt.Errorf("place %q: lat and lng must be set together", id)
	}
	if e.EntryFee < 0 {
		return domain.Place{}, fmt.Errorf("place %q: entry_fee must be >= 0", id)
	}
	tier := domain.PriceFree
	if s := strings.TrimSpace(e.PriceTier); s != "" {
		tier = domain.PriceTier(strings.ToUpper(s))
		if !tier.Valid() {
			return domain.Place{}, fmt.Errorf("place %q: unknown price tier %q", id, e.PriceTier)
		}
	}
	title := domain.NormalizeTitle(e.Title)
	if title == "" {
		title = id
	}
	return domain.Place{
		ID:        domain.PlaceID(id),
		Title:     title,
		Category:  domain.ParseCategory(e.Category),
		PriceTier: tier,
		Address:   strings.TrimSpace(e.Address),
		Province:  strings.TrimSpace(e.Province),
		City:      strings.TrimSpace(e.City),
		Lat:       e.Lat,
		Lng:       e.Lng,
		EntryFee:  e.EntryFee,
	}, nil
}
