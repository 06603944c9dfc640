// Command seed loads flood events into the configured store. Events come from
// a JSON array of {lat, lng} objects or are generated at random inside the
// catalog's regions with a fixed seed, so fixtures are reproducible.
//
// Usage:
//
//	go run ./cmd/seed -file data/events.json
//	go run ./cmd/seed -generate 200 -region "Greater Accra" -out data/accra.json
//	STORE_DRIVER=postgres DATABASE_URL=postgres://... go run ./cmd/seed -generate 500
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/flood-viewer-api/internal/config"
	"github.com/couchcryptid/flood-viewer-api/internal/domain"
	"github.com/couchcryptid/flood-viewer-api/internal/geometry"
	"github.com/couchcryptid/flood-viewer-api/internal/store"
)

// maxAttempts bounds rejection sampling per point.
const maxAttempts = 10000

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	file := flag.String("file", "", `JSON array of {"lat","lng"} objects ("-" for stdin)`)
	generate := flag.Int("generate", 0, "number of events to generate instead of reading -file")
	region := flag.String("region", "", "generate only inside this region (default: every region in turn)")
	seed := flag.Uint64("seed", 1, "random seed for -generate")
	out := flag.String("out", "", "write the events as JSON to this path instead of storing them")
	flag.Parse()

	if (*file == "") == (*generate <= 0) {
		flag.Usage()
		return fmt.Errorf("exactly one of -file or -generate is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var inputs []domain.EventInput
	if *file != "" {
		inputs, err = readInputs(*file)
	} else {
		inputs, err = generateInputs(cfg, *generate, *region, *seed)
	}
	if err != nil {
		return err
	}
	log.Printf("prepared %d events", len(inputs))

	if *out != "" {
		if err := writeJSON(*out, inputs); err != nil {
			return fmt.Errorf("writing %s: %w", *out, err)
		}
		log.Printf("wrote %s", *out)
		return nil
	}

	ctx := context.Background()
	st, err := store.Connect(ctx, cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	created, err := st.InsertBatch(ctx, inputs)
	if err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	if len(created) > 0 {
		log.Printf("stored %d events (ids %d..%d) in %s", len(created), created[0].ID, created[len(created)-1].ID, cfg.StoreDriver)
	}
	return nil
}

// readInputs decodes every element with the same rules as POST /events and
// reports all invalid elements at once.
func readInputs(path string) ([]domain.EventInput, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open: %w", err)
		}
		defer f.Close()
		r = f
	}

	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	inputs := make([]domain.EventInput, 0, len(items))
	var bad int
	for i, item := range items {
		in, err := domain.DecodeEventInput(item)
		if err != nil {
			log.Printf("element %d: %v", i, err)
			bad++
			continue
		}
		inputs = append(inputs, in)
	}
	if bad > 0 {
		return nil, fmt.Errorf("%d of %d elements are invalid", bad, len(items))
	}
	return inputs, nil
}

func generateInputs(cfg *config.Config, n int, regionName string, seed uint64) ([]domain.EventInput, error) {
	catalog, err := geometry.LoadConfigured(cfg.GeometryFile)
	if err != nil {
		return nil, fmt.Errorf("load geometry: %w", err)
	}

	regions := catalog.Regions()
	if regionName != "" {
		r, err := catalog.Lookup(regionName)
		if err != nil {
			return nil, err
		}
		regions = []domain.Region{r}
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })

	rng := rand.New(rand.NewPCG(seed, seed))
	inputs := make([]domain.EventInput, 0, n)
	for i := 0; i < n; i++ {
		r := regions[i%len(regions)]
		in, err := pointInRegion(rng, r, cfg.AxisOrder)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// pointInRegion samples the region's bounding box until a point falls inside
// its outer ring, then maps it back to lat/lng under the given axis order.
func pointInRegion(rng *rand.Rand, r domain.Region, axis domain.AxisOrder) (domain.EventInput, error) {
	ring := r.OuterRing()
	if len(ring) == 0 {
		return domain.EventInput{}, fmt.Errorf("region %q has no outer ring", r.Name)
	}
	b := ring.Bound()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		p := orb.Point{
			b.Min[0] + rng.Float64()*(b.Max[0]-b.Min[0]),
			b.Min[1] + rng.Float64()*(b.Max[1]-b.Min[1]),
		}
		if !planar.RingContains(ring, p) {
			continue
		}
		if axis == domain.AxisLatLng {
			return domain.EventInput{Lat: p[0], Lng: p[1]}, nil
		}
		return domain.EventInput{Lat: p[1], Lng: p[0]}, nil
	}
	return domain.EventInput{}, fmt.Errorf("region %q: no interior point after %d attempts", r.Name, maxAttempts)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
