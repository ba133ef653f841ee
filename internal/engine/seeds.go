package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seeds is the optional YAML file listing what to scan:
//
//	domains:
//	  - hostinger.fr
//	  - nordvpn.com
//	recency: today
type Seeds struct {
	Domains []string `yaml:"domains"`
	Recency string   `yaml:"recency"`
}

// LoadSeeds reads and decodes a seeds file. Domains are normalized.
func LoadSeeds(path string) (*Seeds, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seeds: open %s: %w", path, err)
	}
	defer f.Close()

	var s Seeds
	if err := yaml.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("seeds: decode %s: %w", path, err)
	}
	s.Domains = NormalizeDomains(s.Domains)
	return &s, nil
}
