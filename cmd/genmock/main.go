// Command genmock writes deterministic fixtures for local runs and the
// integration tests: a point feed CSV and a JSON-lines track of simulated
// position samples that can be replayed onto the location topic.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -feed-out data/mock/points.csv \
//	  -track-out data/mock/track.jsonl \
//	  -center 40.7128,-74.0060 -points 200 -fixes 600
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/location"
)

var baseTime = time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	feedOut := flag.String("feed-out", "", "output path for the point feed CSV")
	trackOut := flag.String("track-out", "", "output path for the JSON-lines sample track")
	center := flag.String("center", "40.7128,-74.0060", "lat,lon the fixtures are generated around")
	points := flag.Int("points", 200, "number of feed rows")
	fixes := flag.Int("fixes", 600, "number of track samples, one per second")
	seed := flag.Uint64("seed", 42, "random seed for the feed")
	flag.Parse()

	if *feedOut == "" || *trackOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -feed-out, -track-out")
	}

	lat, lon, err := parseCenter(*center)
	if err != nil {
		return err
	}

	rows := generateFeed(lat, lon, *points, rand.New(rand.NewPCG(*seed, *seed)))
	if err := os.WriteFile(*feedOut, []byte(rows), 0o600); err != nil {
		return fmt.Errorf("writing feed fixture: %w", err)
	}
	log.Printf("wrote feed fixture: %s (%d points)", *feedOut, *points)

	if err := writeTrack(*trackOut, lat, lon, *fixes); err != nil {
		return fmt.Errorf("writing track fixture: %w", err)
	}
	log.Printf("wrote track fixture: %s (%d fixes)", *trackOut, *fixes)

	printStats(rows)
	return nil
}

func parseCenter(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid -center %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -center latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -center longitude: %w", err)
	}
	return lat, lon, nil
}

// generateFeed scatters points within ~1 km of the center. Intensity falls
// off with distance so the rendered layer shows a hot spot.
func generateFeed(lat, lon float64, n int, rng *rand.Rand) string {
	var b strings.Builder
	b.WriteString("lat,lon,value,label\n")

	const spreadDeg = 0.01
	for i := 0; i < n; i++ {
		dLat := (rng.Float64()*2 - 1) * spreadDeg
		dLon := (rng.Float64()*2 - 1) * spreadDeg
		dist := math.Hypot(dLat, dLon) / (spreadDeg * math.Sqrt2)
		value := math.Max(0, 1-dist+rng.NormFloat64()*0.05)

		label := ""
		if i%10 == 0 {
			label = fmt.Sprintf("Sensor %03d", i)
		}
		fmt.Fprintf(&b, "%.6f,%.6f,%.3f,%s\n", lat+dLat, lon+dLon, value, label)
	}
	return b.String()
}

func writeTrack(path string, lat, lon float64, n int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sim := location.NewSimSource(location.SimConfig{CenterLat: lat, CenterLon: lon}, nil)
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		s := sim.Sample(baseTime.Add(time.Duration(i) * time.Second))
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode sample %d: %w", i, err)
		}
	}
	return w.Flush()
}

func printStats(feed string) {
	result := domain.FeedParser{}.Parse(feed)
	buckets := make([]int, 5)
	for _, rec := range result.Records {
		idx := int(rec.Intensity * float64(len(buckets)))
		if idx == len(buckets) {
			idx--
		}
		buckets[idx]++
	}

	log.Printf("parsed back: %d records, %d dropped", len(result.Records), result.Dropped)
	for i, c := range buckets {
		lo := float64(i) / float64(len(buckets))
		hi := float64(i+1) / float64(len(buckets))
		log.Printf("  intensity %.1f-%.1f: %d (%s)", lo, hi, c, domain.MapColor((lo+hi)/2))
	}
}
