package engine

// PromoScanInput is the input for the promo_scan tool.
type PromoScanInput struct {
	Domains []string `json:"domains,omitempty" jsonschema:"Affiliate domains to search for, e.g. hostinger.fr, nordvpn.com (default: configured seeds)"`
	Recency string   `json:"recency,omitempty" jsonschema:"Upload date filter: hour, today, week, month, year (default: today)"`
}

// ScanReport summarizes one scan run.
type ScanReport struct {
	Domains      int         `json:"domains"`
	Candidates   int         `json:"candidates"`
	Duplicates   int         `json:"duplicates"`
	Descriptions int         `json:"descriptions"`
	Promotions   int         `json:"promotions"`
	Skipped      int         `json:"skipped"`
	FetchErrors  int         `json:"fetch_errors"`
	ModelErrors  int         `json:"model_errors"`
	Detections   []Detection `json:"detections,omitempty"`
	Elapsed      string      `json:"elapsed"`
}

// Detection is one recorded promotion as reported back to the caller.
type Detection struct {
	Video        CandidateVideo `json:"video"`
	Promo        PromoRecord    `json:"promo"`
	FitnessScore float64        `json:"fitness_score"`
}

// PromoExtractInput is the input for the promo_extract tool.
type PromoExtractInput struct {
	Description string `json:"description" jsonschema:"Raw video description text"`
}

// PromoExtractOutput is the output of promo_extract. Found is false when no promotion was detected.
type PromoExtractOutput struct {
	Found bool         `json:"found"`
	Promo *PromoRecord `json:"promo,omitempty"`
}

// ActivePromosInput is the input for the active_promos tool.
type ActivePromosInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max promos to return (default: 20, max: 200)"`
}

// ActivePromosOutput lists unexpired promotions, newest first.
type ActivePromosOutput struct {
	Promos []ActivePromo `json:"promos"`
	Total  int           `json:"total"`
}

// TopCreatorsInput is the input for the top_creators tool.
type TopCreatorsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max creators to return (default: 20, max: 200)"`
}

// TopCreatorsOutput ranks creators by fitness score.
type TopCreatorsOutput struct {
	Creators []Creator `json:"creators"`
	Total    int       `json:"total"`
}

// SweepInput is the (empty) input for the promo_sweep tool.
type SweepInput struct{}

// SweepOutput reports how many expired promos were removed.
type SweepOutput struct {
	Removed int `json:"removed"`
}
