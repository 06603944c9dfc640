// Command geomcheck validates a region geometry document before it is deployed
// with GEOMETRY_FILE. It loads the document with the same rules the server
// uses, reports each region's vertex count and area, checks that regions sit
// inside the country outline, and optionally classifies a point.
//
// Usage:
//
//	go run ./cmd/geomcheck
//	go run ./cmd/geomcheck -file /etc/flood/ghana.json -point -0.2,5.6
//	go run ./cmd/geomcheck -axis latlng -point 5.6,-0.2
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/flood-viewer-api/internal/domain"
	"github.com/couchcryptid/flood-viewer-api/internal/geometry"
)

// countryTolerance is how far, in degrees, a region vertex may sit outside
// the country's bounding box.
const countryTolerance = 0.05

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "geometry document to check (default: embedded Ghana document)")
	axisFlag := flag.String("axis", "lnglat", "axis order used to classify -point: lnglat or latlng")
	point := flag.String("point", "", `optional "x,y" point to classify, in -axis order`)
	flag.Parse()

	os.Exit(run(*file, *axisFlag, *point))
}

func run(file, axisFlag, point string) int {
	axis, err := domain.ParseAxisOrder(axisFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== Region Geometry Validation ===")
	fmt.Println()

	catalog, load := loadPhase(file)
	phases := []*phase{load}
	if catalog != nil {
		printRegions(catalog)
		phases = append(phases,
			validateAreas(catalog),
			validateWithinCountry(catalog),
		)
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if catalog != nil && point != "" {
		if err := classify(catalog, point, axis); err != nil {
			fmt.Fprintf(os.Stderr, "\nFATAL: %v\n", err)
			return 1
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadPhase(file string) (*geometry.Catalog, *phase) {
	p := &phase{name: "Document loads"}
	var (
		catalog *geometry.Catalog
		err     error
	)
	if file == "" {
		catalog, err = geometry.LoadDefault()
	} else {
		catalog, err = geometry.LoadFile(file)
	}
	if err != nil {
		// Joined problems are newline separated.
		for _, line := range strings.Split(err.Error(), "\n") {
			p.errorf("%s", line)
		}
		return nil, p
	}
	if catalog.Len() == 0 {
		p.errorf("document has no regions")
	}
	return catalog, p
}

func printRegions(c *geometry.Catalog) {
	fmt.Printf("%-20s %8s %8s %12s\n", "REGION", "VERTICES", "HOLES", "AREA (deg²)")
	for _, r := range c.Regions() {
		holes := 0
		if len(r.Polygon) > 1 {
			holes = len(r.Polygon) - 1
		}
		ring := r.OuterRing()
		fmt.Printf("%-20s %8d %8d %12.4f\n", r.Name, len(ring), holes, math.Abs(planar.Area(ring)))
	}
	if country, ok := c.Country(); ok {
		fmt.Printf("%-20s %8d %8s %12.4f\n", country.Name+" (country)", len(country.OuterRing()), "-", math.Abs(planar.Area(country.OuterRing())))
	}
}

func validateAreas(c *geometry.Catalog) *phase {
	p := &phase{name: "Regions have non-zero area"}
	for _, r := range c.Regions() {
		if planar.Area(r.OuterRing()) == 0 {
			p.errorf("%s: outer ring is degenerate", r.Name)
		}
	}
	return p
}

func validateWithinCountry(c *geometry.Catalog) *phase {
	p := &phase{name: "Regions within country outline"}
	country, ok := c.Country()
	if !ok {
		return p
	}
	b := country.OuterRing().Bound().Pad(countryTolerance)
	for _, r := range c.Regions() {
		outside := 0
		for _, pt := range r.OuterRing() {
			if !b.Contains(pt) {
				outside++
			}
		}
		if outside > 0 {
			p.errorf("%s: %d of %d vertices outside the %s bounding box", r.Name, outside, len(r.OuterRing()), country.Name)
		}
	}
	return p
}

// classify prints every region whose outer ring contains the point.
func classify(c *geometry.Catalog, point string, axis domain.AxisOrder) error {
	x, y, ok := strings.Cut(point, ",")
	if !ok {
		return fmt.Errorf("invalid -point %q: want x,y", point)
	}
	px, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
	if err != nil {
		return fmt.Errorf("invalid -point x: %w", err)
	}
	py, err := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err != nil {
		return fmt.Errorf("invalid -point y: %w", err)
	}

	e := domain.Event{Lat: py, Lng: px}
	if axis == domain.AxisLatLng {
		e = domain.Event{Lat: px, Lng: py}
	}

	var matches []string
	for _, r := range c.Regions() {
		if len(domain.FilterByRegion([]domain.Event{e}, r, axis)) == 1 {
			matches = append(matches, r.Name)
		}
	}

	fmt.Printf("\nPoint %g,%g (lat=%g, lng=%g, axis=%s): ", px, py, e.Lat, e.Lng, axis)
	if len(matches) == 0 {
		fmt.Println("no region")
		return nil
	}
	fmt.Println(strings.Join(matches, ", "))
	return nil
}
