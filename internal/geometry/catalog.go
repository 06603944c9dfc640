// Package geometry loads the static region geometry document and resolves
// region names to polygons.
package geometry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
)

//go:embed data/ghana.json
var ghanaDocument []byte

// ErrInvalidDocument wraps every problem found while loading a document.
var ErrInvalidDocument = errors.New("invalid geometry document")

// Catalog is an immutable, load-once set of named regions.
// It is safe for concurrent use.
type Catalog struct {
	raw     []byte
	country *domain.Region
	regions []domain.Region
	byName  map[string]int
}

type document struct {
	Country *namedGeometry  `json:"country"`
	Regions []namedGeometry `json:"regions"`
}

type namedGeometry struct {
	Name     string          `json:"name"`
	Geometry json.RawMessage `json:"geometry"`
}

// LoadDefault loads the embedded Ghana document. Its region outlines are
// coarse polygons of 5 to 9 vertices that tile the country outline; points
// within a few kilometres of a real regional border may be classified into the
// neighbouring region. Use LoadFile with surveyed boundaries when that matters.
func LoadDefault() (*Catalog, error) {
	return Load(ghanaDocument)
}

// LoadConfigured loads the document at path, or the embedded Ghana document
// when path is empty.
func LoadConfigured(path string) (*Catalog, error) {
	if path == "" {
		return LoadDefault()
	}
	return LoadFile(path)
}

// LoadFile reads and loads a document from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geometry file: %w", err)
	}
	return Load(data)
}

// Load parses and validates a geometry document. Region names must be
// non-empty and unique, and every region needs a closed outer ring of at
// least four points. The document bytes are kept verbatim for Raw.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if len(doc.Regions) == 0 {
		return nil, fmt.Errorf("%w: no regions", ErrInvalidDocument)
	}

	c := &Catalog{
		raw:     append([]byte(nil), data...),
		regions: make([]domain.Region, 0, len(doc.Regions)),
		byName:  make(map[string]int, len(doc.Regions)),
	}

	var errs []error
	for i, ng := range doc.Regions {
		if ng.Name == "" {
			errs = append(errs, fmt.Errorf("region %d: empty name", i))
			continue
		}
		if _, dup := c.byName[ng.Name]; dup {
			errs = append(errs, fmt.Errorf("region %q: duplicate name", ng.Name))
			continue
		}
		poly, err := parsePolygon(ng.Geometry)
		if err != nil {
			errs = append(errs, fmt.Errorf("region %q: %w", ng.Name, err))
			continue
		}
		c.byName[ng.Name] = len(c.regions)
		c.regions = append(c.regions, domain.Region{Name: ng.Name, Polygon: poly})
	}

	if doc.Country != nil {
		poly, err := parsePolygon(doc.Country.Geometry)
		if err != nil {
			errs = append(errs, fmt.Errorf("country: %w", err))
		} else {
			c.country = &domain.Region{Name: doc.Country.Name, Polygon: poly}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
	}
	return c, nil
}

// Lookup resolves a region by exact name. Unknown names return an error
// wrapping domain.ErrRegionNotFound.
func (c *Catalog) Lookup(name string) (domain.Region, error) {
	i, ok := c.byName[name]
	if !ok {
		return domain.Region{}, fmt.Errorf("%w: %q", domain.ErrRegionNotFound, name)
	}
	return c.regions[i], nil
}

// Regions returns the regions in document order.
func (c *Catalog) Regions() []domain.Region {
	return append([]domain.Region(nil), c.regions...)
}

// Names returns the region names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.regions))
	for _, r := range c.regions {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// Country returns the country outline when the document has one.
func (c *Catalog) Country() (domain.Region, bool) {
	if c.country == nil {
		return domain.Region{}, false
	}
	return *c.country, true
}

// Len returns the number of regions.
func (c *Catalog) Len() int { return len(c.regions) }

// Raw returns the document exactly as loaded. Callers must not modify it.
func (c *Catalog) Raw() []byte { return c.raw }

// parsePolygon accepts a GeoJSON Polygon or MultiPolygon. For a MultiPolygon
// only the first polygon is kept.
func parsePolygon(raw json.RawMessage) (orb.Polygon, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("missing geometry")
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}

	var poly orb.Polygon
	switch geom := g.Geometry().(type) {
	case orb.Polygon:
		poly = geom
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return nil, errors.New("empty multipolygon")
		}
		poly = geom[0]
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}

	if len(poly) == 0 {
		return nil, errors.New("polygon has no rings")
	}
	outer := poly[0]
	if len(outer) < 4 {
		return nil, fmt.Errorf("outer ring has %d points, need at least 4", len(outer))
	}
	if !outer.Closed() {
		return nil, errors.New("outer ring is not closed")
	}
	return poly, nil
}
