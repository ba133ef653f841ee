package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int

	Domains         []string      // search seeds, e.g. "hostinger.fr"
	Recency         string        // hour, today, week, month, year
	PromoTTL        time.Duration // lifetime of an active promo row
	FitnessIncrease float64       // added to a creator's fitness per detection
	DescriptionMax  int           // runes of description sent to the model
	Workers         int           // concurrent domain searches / candidates
	FetchRPS        float64       // page fetch token bucket; 0 = unlimited
	FetchTimeout    time.Duration
	SweepInterval   time.Duration

	DatabaseURL string // postgres; empty = sqlite at SQLitePath
	SQLitePath  string
	NatsURL     string
	MeiliHost   string
	MeiliKey    string
	MeiliIndex  string

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient    *http.Client
	BrowserClient *BrowserClient // nil = plain HTTP fetches
	LLMClient     *llm.Client    // nil = extraction disabled
}

// Defaults for the promotion lifecycle.
const (
	DefaultPromoTTL        = 48 * time.Hour
	DefaultFitnessIncrease = 0.5
	DefaultDescriptionMax  = 800
	DefaultWorkers         = 4
	DefaultRecency         = "today"
)

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, promo, ledger, scan).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
// Zero lifecycle values are replaced by their defaults.
func Init(c Config) {
	if c.PromoTTL <= 0 {
		c.PromoTTL = DefaultPromoTTL
	}
	if c.FitnessIncrease <= 0 {
		c.FitnessIncrease = DefaultFitnessIncrease
	}
	if c.DescriptionMax <= 0 {
		c.DescriptionMax = DefaultDescriptionMax
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Recency == "" {
		c.Recency = DefaultRecency
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg = c
	Cfg = &cfg
}
