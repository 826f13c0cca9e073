// Package gateway constructs exchange vendors from the built-in catalog.
package gateway

import (
	_ "embed"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogEntry describes one exchange the catalog knows about. Entries
// without a driver are alias knowledge only and cannot be constructed.
type CatalogEntry struct {
	Driver     string `yaml:"driver"`
	Perpetual  string `yaml:"perpetual"`
	Settle     string `yaml:"settle"`
	SpacingMs  int    `yaml:"spacing_ms"`
	MaxRecords int    `yaml:"max_records"`
}

func (e CatalogEntry) Spacing() time.Duration {
	return time.Duration(e.SpacingMs) * time.Millisecond
}

type catalog struct {
	Exchanges map[string]CatalogEntry `yaml:"exchanges"`
}

var (
	catalogOnce sync.Once
	catalogData catalog
	catalogErr  error
)

func loadCatalog() (map[string]CatalogEntry, error) {
	catalogOnce.Do(func() {
		catalogErr = yaml.Unmarshal(catalogYAML, &catalogData)
	})
	return catalogData.Exchanges, catalogErr
}

// Lookup returns the catalog entry for a canonical exchange name.
func Lookup(name string) (CatalogEntry, bool) {
	entries, err := loadCatalog()
	if err != nil {
		return CatalogEntry{}, false
	}
	e, ok := entries[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// VenueName maps a request exchange to the venue identifier that serves
// perpetual contracts (e.g. binance -> binanceusdm), mirroring how the
// spot and derivatives universes are split across distinct venue APIs.
func VenueName(name string, perpetual bool) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !perpetual {
		return name
	}
	if e, ok := Lookup(name); ok && e.Perpetual != "" {
		return e.Perpetual
	}
	return name
}
