package geocode

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Appended output columns. The output CSV doubles as the resume cache, so
// these names are part of the format.
const (
	colLongitude = "longitude"
	colLatitude  = "latitude"
	colError     = "geocode_error"
)

// BatchOptions controls a batch geocoding run.
type BatchOptions struct {
	// StreetColumn and CityColumn name the input address columns.
	StreetColumn string
	CityColumn   string
	// CheckpointEvery flushes the output file after this many newly geocoded
	// rows, so an interrupted run loses little work. Zero means 250.
	CheckpointEvery int
}

// Batch geocodes tabular rows and writes them to outPath with longitude,
// latitude and geocode_error columns appended. If outPath already exists,
// rows whose address was previously resolved (or previously failed with a
// definitive not-found) are not re-queried.
type Batch struct {
	client Client
	opts   BatchOptions
	log    *zap.Logger
}

// NewBatch creates a Batch runner.
func NewBatch(client Client, opts BatchOptions) *Batch {
	if opts.StreetColumn == "" {
		opts.StreetColumn = "street"
	}
	if opts.CityColumn == "" {
		opts.CityColumn = "city"
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 250
	}
	return &Batch{
		client: client,
		opts:   opts,
		log:    zap.L().With(zap.String("component", "geocode")),
	}
}

type cached struct {
	lon, lat, errMsg string
}

// Run processes header+rows and writes the geocoded table to outPath.
// Returns the number of rows newly geocoded this run.
func (b *Batch) Run(ctx context.Context, header []string, rows [][]string, outPath string) (int, error) {
	streetIdx := columnIndex(header, b.opts.StreetColumn)
	cityIdx := columnIndex(header, b.opts.CityColumn)
	if streetIdx < 0 || cityIdx < 0 {
		return 0, eris.Errorf("geocode: input missing %q or %q column", b.opts.StreetColumn, b.opts.CityColumn)
	}

	cache, err := b.loadCache(outPath, streetIdx, cityIdx, len(header))
	if err != nil {
		return 0, err
	}
	if len(cache) > 0 {
		b.log.Info("resuming from existing output", zap.Int("cached", len(cache)), zap.String("path", outPath))
	}

	outHeader := append(append([]string{}, header...), colLongitude, colLatitude, colError)
	outRows := make([][]string, 0, len(rows))
	geocoded := 0

	for i, row := range rows {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}

		key := addressKey(row[streetIdx], row[cityIdx])
		hit, ok := cache[key]
		if !ok {
			hit = b.lookup(ctx, row[streetIdx], row[cityIdx])
			if ctx.Err() != nil {
				break
			}
			cache[key] = hit
			geocoded++
		}

		outRows = append(outRows, append(append([]string{}, row[:len(header)]...), hit.lon, hit.lat, hit.errMsg))

		if geocoded > 0 && geocoded%b.opts.CheckpointEvery == 0 && !ok {
			if err := writeTable(outPath, outHeader, outRows); err != nil {
				return geocoded, err
			}
			b.log.Info("checkpoint written", zap.Int("rows_done", i+1), zap.Int("geocoded", geocoded))
		}
	}

	if err := writeTable(outPath, outHeader, outRows); err != nil {
		return geocoded, err
	}
	if ctx.Err() != nil {
		return geocoded, eris.Wrap(ctx.Err(), "geocode: interrupted")
	}

	b.log.Info("batch complete",
		zap.Int("rows", len(outRows)),
		zap.Int("geocoded", geocoded),
		zap.Int("from_cache", len(outRows)-geocoded),
	)
	return geocoded, nil
}

func (b *Batch) lookup(ctx context.Context, street, city string) cached {
	res, err := b.client.Geocode(ctx, street, city)
	switch {
	case err == nil:
		return cached{
			lon: strconv.FormatFloat(res.Longitude, 'f', -1, 64),
			lat: strconv.FormatFloat(res.Latitude, 'f', -1, 64),
		}
	case eris.Is(err, ErrNotFound):
		return cached{errMsg: "not_found"}
	default:
		b.log.Warn("geocode failed", zap.String("street", street), zap.String("city", city), zap.Error(err))
		return cached{errMsg: err.Error()}
	}
}

// loadCache reads a previous output file and indexes it by address. Rows
// with a transient error recorded are not cached, so they get retried.
func (b *Batch) loadCache(outPath string, streetIdx, cityIdx, inputCols int) (map[string]cached, error) {
	cache := make(map[string]cached)

	f, err := os.Open(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return nil, eris.Wrapf(err, "geocode: open cache %s", outPath)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: read cache %s", outPath)
	}
	if len(records) < 2 {
		return cache, nil
	}

	for _, rec := range records[1:] {
		if len(rec) < inputCols+3 {
			continue
		}
		lon, lat, errMsg := rec[inputCols], rec[inputCols+1], rec[inputCols+2]
		if lon == "" && lat == "" && errMsg != "not_found" {
			continue
		}
		cache[addressKey(rec[streetIdx], rec[cityIdx])] = cached{lon: lon, lat: lat, errMsg: errMsg}
	}
	return cache, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "geocode: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "geocode: write header")
	}
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrap(err, "geocode: write rows")
	}
	return f.Close()
}

// addressKey normalizes an address for cache lookups.
func addressKey(street, city string) string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
	}
	return norm(street) + "|" + norm(city)
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
