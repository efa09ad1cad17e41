// Command feedcheck parses a point feed with the production parser and
// reports what the map would render: one line per accepted row, the number
// of rows dropped, and a set of integrity checks over the result.
//
// Usage:
//
//	go run ./cmd/feedcheck -feed data.csv [-ramp traffic-light] [-geojson out.json] [-quiet]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/overlay"
)

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedPath := flag.String("feed", "", "path to the point feed (header line, then lat,lon,value[,label])")
	rampName := flag.String("ramp", "linear", "color ramp: linear or traffic-light")
	geojsonOut := flag.String("geojson", "", "optional output path for the rendered GeoJSON layer")
	quiet := flag.Bool("quiet", false, "suppress per-row output")
	flag.Parse()

	if *feedPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	code, err := run(os.Stdout, *feedPath, *rampName, *geojsonOut, *quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(w io.Writer, feedPath, rampName, geojsonOut string, quiet bool) (int, error) {
	ramp, err := domain.ParseRamp(rampName)
	if err != nil {
		return 0, err
	}
	raw, err := os.ReadFile(feedPath)
	if err != nil {
		return 0, fmt.Errorf("read feed: %w", err)
	}

	result := domain.FeedParser{Ramp: ramp}.Parse(string(raw))

	fmt.Fprintf(w, "=== Feed check: %s (%s ramp) ===\n\n", feedPath, ramp)
	if !quiet {
		for i, rec := range result.Records {
			fmt.Fprintf(w, "  %4d  %10.5f %11.5f  %5.3f  %-16s  %s\n",
				i+1, rec.Coordinate.Lat, rec.Coordinate.Lon, rec.Intensity, rec.Color, rec.DisplayLabel())
		}
		fmt.Fprintln(w)
	}

	phases := []*phase{
		checkCoordinates(result.Records),
		checkColors(result.Records, ramp),
		checkIdempotence(string(raw), ramp, result),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Rows: %d examined, %d rendered, %d dropped\n", result.Rows, len(result.Records), result.Dropped)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if geojsonOut != "" {
		if err := writeGeoJSON(geojsonOut, result.Records); err != nil {
			return 0, err
		}
		fmt.Fprintf(w, "\nwrote GeoJSON: %s\n", geojsonOut)
	}

	if !allPassed {
		fmt.Fprintln(w, "\nFeed check FAILED.")
		return 1, nil
	}
	return 0, nil
}

func checkCoordinates(records []domain.PointRecord) *phase {
	p := &phase{name: "Coordinates in WGS-84 range"}
	for i, rec := range records {
		if rec.Coordinate.Lat < -90 || rec.Coordinate.Lat > 90 {
			p.errorf("row %d: latitude %v out of range", i+1, rec.Coordinate.Lat)
		}
		if rec.Coordinate.Lon < -180 || rec.Coordinate.Lon > 180 {
			p.errorf("row %d: longitude %v out of range", i+1, rec.Coordinate.Lon)
		}
	}
	return p
}

func checkColors(records []domain.PointRecord, ramp domain.Ramp) *phase {
	p := &phase{name: "Colors derived from intensity"}
	for i, rec := range records {
		if rec.Intensity < 0 || rec.Intensity > 1 {
			p.errorf("row %d: intensity %v outside [0,1]", i+1, rec.Intensity)
		}
		if want := ramp.Map(rec.Intensity); rec.Color != want {
			p.errorf("row %d: color %s, want %s", i+1, rec.Color, want)
		}
	}
	return p
}

func checkIdempotence(raw string, ramp domain.Ramp, first domain.FeedResult) *phase {
	p := &phase{name: "Re-parse yields identical layer"}
	second := domain.FeedParser{Ramp: ramp}.Parse(raw)
	if len(second.Records) != len(first.Records) {
		p.errorf("record count %d, then %d", len(first.Records), len(second.Records))
		return p
	}
	for i := range first.Records {
		if first.Records[i] != second.Records[i] {
			p.errorf("row %d differs between parses", i+1)
		}
	}
	return p
}

func writeGeoJSON(path string, records []domain.PointRecord) error {
	view := overlay.New("")
	view.SetPointLayer(records, time.Now())

	data, err := json.MarshalIndent(view.Snapshot().GeoJSON(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
