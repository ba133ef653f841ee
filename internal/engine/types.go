package engine

import (
	"strings"
	"time"
)

// --- Core promo types ---

// CandidateVideo is a search result suspected of carrying a sponsorship.
// It lives only between discovery and extraction.
type CandidateVideo struct {
	VideoID        string `json:"video_id"`
	ChannelID      string `json:"channel_id"`
	ChannelName    string `json:"channel_name"`
	Title          string `json:"title"`
	DetectedDomain string `json:"detected_domain"`
	UploadDateText string `json:"upload_date_text,omitempty"`
}

// WatchURL returns the canonical watch page URL for the video.
func (v CandidateVideo) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

// PromoRecord is the structured promotion pulled out of a description.
// A nil field means the model did not find it.
type PromoRecord struct {
	Brand    *string `json:"brand"`
	Code     *string `json:"code"`
	Discount *string `json:"discount"`
}

// Empty reports whether no field carries a non-blank value.
func (r PromoRecord) Empty() bool {
	return blank(r.Brand) && blank(r.Code) && blank(r.Discount)
}

// Normalize trims every field and drops blank ones.
func (r PromoRecord) Normalize() PromoRecord {
	return PromoRecord{Brand: trimPtr(r.Brand), Code: trimPtr(r.Code), Discount: trimPtr(r.Discount)}
}

func blank(p *string) bool { return p == nil || strings.TrimSpace(*p) == "" }

func trimPtr(p *string) *string {
	if blank(p) {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

// StrPtr returns a pointer to s, or nil when s is blank.
func StrPtr(s string) *string {
	return trimPtr(&s)
}

// Deref returns *p, or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Creator is the long-lived intelligence record of a channel.
type Creator struct {
	ChannelID      string         `json:"channel_id"`
	ChannelName    string         `json:"channel_name"`
	CountryCode    string         `json:"country_code,omitempty"`
	FitnessScore   float64        `json:"fitness_score"`
	LastDetectedAt time.Time      `json:"last_detected_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ActivePromo is a promotion that stays visible until ExpiresAt.
type ActivePromo struct {
	VideoID         string       `json:"video_id"`
	ChannelID       string       `json:"channel_id"`
	ChannelName     string       `json:"channel_name,omitempty"`
	Title           string       `json:"title"`
	DetectedDomain  string       `json:"detected_domain,omitempty"`
	UploadDate      time.Time    `json:"upload_date"`
	BrandName       *string      `json:"brand_name,omitempty"`
	PromoCode       *string      `json:"promo_code,omitempty"`
	DiscountDetails *string      `json:"discount_details,omitempty"`
	RawExtraction   *PromoRecord `json:"raw_extraction,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	ExpiresAt       time.Time    `json:"expires_at"`
}
