package engine

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	body := "domains:\n  - hostinger.fr\n  - https://www.NordVPN.com/\n  - hostinger.fr\nrecency: week\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("LoadSeeds: %v", err)
	}
	if want := []string{"hostinger.fr", "nordvpn.com"}; !reflect.DeepEqual(s.Domains, want) {
		t.Errorf("domains = %v, want %v", s.Domains, want)
	}
	if s.Recency != "week" {
		t.Errorf("recency = %q", s.Recency)
	}
}

func TestLoadSeedsErrors(t *testing.T) {
	if _, err := LoadSeeds(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("domains: [unterminated"), 0o600)
	if _, err := LoadSeeds(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}
