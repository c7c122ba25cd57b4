package watch

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guarzo/podprice/internal/model"
)

// Watchlist is the set of part variants refreshed on a schedule.
//
//	variants:
//	  - generation: AirPods Pro (2nd Gen)
//	    part: case
//	    connector: usb-c
type Watchlist struct {
	Variants []model.PartVariant `yaml:"variants"`
}

func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return ParseWatchlist(data)
}

func ParseWatchlist(data []byte) (*Watchlist, error) {
	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}

	seen := make(map[string]bool, len(wl.Variants))
	variants := wl.Variants[:0]
	for i, v := range wl.Variants {
		v.Generation = strings.TrimSpace(v.Generation)
		v.PartType = strings.TrimSpace(v.PartType)
		v.ConnectorType = strings.TrimSpace(v.ConnectorType)
		if v.Generation == "" || v.PartType == "" {
			return nil, fmt.Errorf("watchlist entry %d: generation and part are required", i+1)
		}
		if seen[v.Key()] {
			continue
		}
		seen[v.Key()] = true
		variants = append(variants, v)
	}
	wl.Variants = variants
	return &wl, nil
}
