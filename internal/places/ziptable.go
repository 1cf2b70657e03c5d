package places

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// CityZipSource maps a (city, state) pair to the ZIP codes inside the city.
// It is a lower-precision external data source consulted only when the
// geography import has no record of the city itself.
type CityZipSource interface {
	ZipsForCity(city, state string) []string
}

// CSVZipSource is a CityZipSource backed by a city,state,zip CSV file
// loaded fully into memory.
type CSVZipSource struct {
	zips map[string][]string
}

// LoadCSVZipSource reads the table from path. Rows are city,state,zip; a
// header row is detected and skipped.
func LoadCSVZipSource(path string) (*CSVZipSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zip table: %w", err)
	}
	defer f.Close()
	return ReadCSVZipSource(f)
}

// ReadCSVZipSource parses the table from a reader.
func ReadCSVZipSource(r io.Reader) (*CSVZipSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	source := &CSVZipSource{zips: make(map[string][]string)}
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read zip table: %w", err)
		}
		if i == 0 && strings.EqualFold(record[0], "city") {
			continue
		}
		key := zipKey(record[0], record[1])
		source.zips[key] = append(source.zips[key], record[2])
	}
	return source, nil
}

// ZipsForCity returns the ZIP codes recorded for the city, or nil.
func (s *CSVZipSource) ZipsForCity(city, state string) []string {
	return s.zips[zipKey(city, state)]
}

func zipKey(city, state string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "|" + strings.ToLower(strings.TrimSpace(state))
}
