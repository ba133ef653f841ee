package sources

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

func videoRenderer(id, channelID, channel, title, published string) string {
	return fmt.Sprintf(`{"videoRenderer":{"videoId":%q,
		"title":{"runs":[{"text":%q}]},
		"ownerText":{"runs":[{"text":%q,"navigationEndpoint":{"browseEndpoint":{"browseId":%q}}}]},
		"publishedTimeText":{"simpleText":%q}}}`, id, title, channel, channelID, published)
}

func searchPage(items ...string) string {
	return `<html><script>var ytInitialData = {"contents":{"twoColumnSearchResultsRenderer":{"primaryContents":
		{"sectionListRenderer":{"contents":[{"itemSectionRenderer":{"contents":[` +
		strings.Join(items, ",") + `]}}]}}}}};</script></html>`
}

func watchPage(secondaryInfo string) string {
	return `<script>var ytInitialData = {"contents":{"twoColumnWatchNextResults":{"results":{"results":{"contents":[
		{"videoPrimaryInfoRenderer":{"title":{"runs":[{"text":"t"}]}}},
		{"videoSecondaryInfoRenderer":` + secondaryInfo + `}]}}}}};</script>`
}

func TestReadSearchResults(t *testing.T) {
	page := searchPage(
		videoRenderer("vid1", "UC1", "Solene", "Mon site", "3 hours ago"),
		`{"shelfRenderer":{"title":{"simpleText":"Latest"}}}`,
		videoRenderer("vid2", "UC2", "Tech", "Build it", ""),
		`{"videoRenderer":{"videoId":"broken","title":{"runs":[{"text":"no owner"}]}}}`,
		videoRenderer("vid3", "UC3", "Science", "Atoms", "1 day ago"),
	)
	tree, ok := LocateInitialData([]byte(page))
	if !ok {
		t.Fatal("locator failed on fixture")
	}

	got := ReadSearchResults(tree, "hostinger.fr")
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3: %+v", len(got), got)
	}
	wantIDs := []string{"vid1", "vid2", "vid3"}
	for i, v := range got {
		if v.VideoID != wantIDs[i] {
			t.Errorf("candidate %d = %q, want %q", i, v.VideoID, wantIDs[i])
		}
		if v.DetectedDomain != "hostinger.fr" {
			t.Errorf("candidate %d domain = %q", i, v.DetectedDomain)
		}
	}
	if got[0].ChannelID != "UC1" || got[0].ChannelName != "Solene" || got[0].Title != "Mon site" {
		t.Errorf("first candidate fields wrong: %+v", got[0])
	}
	if got[0].UploadDateText != "3 hours ago" {
		t.Errorf("upload text = %q", got[0].UploadDateText)
	}
	if got[1].UploadDateText != "" {
		t.Errorf("missing upload text should be empty, got %q", got[1].UploadDateText)
	}
}

func TestReadSearchResultsUnexpectedShape(t *testing.T) {
	for _, page := range []string{
		`<script>var ytInitialData = {"contents":{}};</script>`,
		`<script>var ytInitialData = {"contents":{"twoColumnSearchResultsRenderer":[]}};</script>`,
		`<script>var ytInitialData = {"onResponseReceivedCommands":[{"x":1}]};</script>`,
	} {
		tree, ok := LocateInitialData([]byte(page))
		if !ok {
			t.Fatalf("locator failed on %q", page)
		}
		if got := ReadSearchResults(tree, "d.com"); len(got) != 0 {
			t.Errorf("expected no candidates, got %+v", got)
		}
	}
}

func TestReadDescription(t *testing.T) {
	const text = "Code SOLENE pour -20% sur hostinger.fr"
	tests := []struct {
		name   string
		info   string
		want   string
		wantOK bool
	}{
		{"attributed", fmt.Sprintf(`{"attributedDescription":{"content":%q}}`, text), text, true},
		{"runs", `{"description":{"runs":[{"text":"Code SOLENE "},{"text":"pour -20% "},{"text":"sur hostinger.fr"}]}}`, text, true},
		{"attributed wins over runs", fmt.Sprintf(`{"attributedDescription":{"content":%q},"description":{"runs":[{"text":"old"}]}}`, text), text, true},
		{"neither", `{"owner":{}}`, "", false},
		{"empty runs", `{"description":{"runs":[]}}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, ok := LocateInitialData([]byte(watchPage(tt.info)))
			if !ok {
				t.Fatal("locator failed on fixture")
			}
			got, ok := ReadDescription(tree)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ReadDescription = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestReadDescriptionNoSecondaryInfo(t *testing.T) {
	tree, _ := LocateInitialData([]byte(`<script>var ytInitialData = {"contents":{"twoColumnWatchNextResults":{"results":{"results":{"contents":[{"videoPrimaryInfoRenderer":{}}]}}}}};</script>`))
	if _, ok := ReadDescription(tree); ok {
		t.Error("expected no description")
	}
}

func TestSearchURL(t *testing.T) {
	got := SearchURL("hostinger.fr", "today")
	want := "https://www.youtube.com/results?search_query=%22hostinger.fr%22&sp=EgIIAg%3D%3D"
	if got != want {
		t.Errorf("SearchURL = %q, want %q", got, want)
	}
	if RecencyFilter("Week") != "EgIIAw%3D%3D" {
		t.Error("recency should be case insensitive")
	}
	if RecencyFilter("century") != RecencyFilter("today") {
		t.Error("unknown recency should default to today")
	}
}

func TestRecencyFiltersDecodeOnce(t *testing.T) {
	for name := range recencyFilters {
		u, err := url.Parse(SearchURL("nordvpn.com", name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		sp := u.Query().Get("sp")
		if !strings.HasSuffix(sp, "==") {
			t.Errorf("%s: sp = %q, want a single-decoded base64 token", name, sp)
		}
		if _, err := base64.StdEncoding.DecodeString(sp); err != nil {
			t.Errorf("%s: sp %q is not base64: %v", name, sp, err)
		}
		if q := u.Query().Get("search_query"); q != `"nordvpn.com"` {
			t.Errorf("%s: search_query = %q", name, q)
		}
	}
}

// fakeFetcher serves canned pages by URL substring.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for k, v := range f.pages {
		if strings.Contains(url, k) {
			return []byte(v), nil
		}
	}
	return nil, errors.New("status 404")
}

func TestYouTubeSearchAndDescription(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"search_query=%22hostinger.fr%22": searchPage(videoRenderer("vidA", "UCA", "A", "T", "")),
		"search_query=%22empty.io%22":     `<html>consent</html>`,
		"watch?v=vidA":                    watchPage(`{"attributedDescription":{"content":"code SOLENE"}}`),
	}}
	yt := NewYouTube(f)
	ctx := context.Background()

	videos, err := yt.SearchDomain(ctx, "hostinger.fr", "today")
	if err != nil || len(videos) != 1 {
		t.Fatalf("SearchDomain = %v, %v", videos, err)
	}

	videos, err = yt.SearchDomain(ctx, "empty.io", "today")
	if err != nil || len(videos) != 0 {
		t.Fatalf("locator miss should be empty without error, got %v, %v", videos, err)
	}

	if _, err := yt.SearchDomain(ctx, "unknown.net", "today"); err == nil {
		t.Error("expected transport error")
	}

	desc, ok, err := yt.FetchDescription(ctx, "vidA")
	if err != nil || !ok || desc != "code SOLENE" {
		t.Fatalf("FetchDescription = %q, %v, %v", desc, ok, err)
	}
}

func TestPlayerFallback(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		if r.Header.Get("X-Youtube-Client-Name") != "3" {
			t.Errorf("client name header = %q", r.Header.Get("X-Youtube-Client-Name"))
		}
		if strings.Contains(fmt.Sprint(gotBody["videoId"]), "gone") {
			_, _ = w.Write([]byte(`{"playabilityStatus":{"status":"ERROR"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"videoDetails":{"videoId":"vidB","shortDescription":"Use code TECH at nordvpn.com"}}`))
	}))
	defer srv.Close()

	player := NewPlayerAPI(engine.NewAPIClient(srv.Client(), nil))
	player.endpoint = srv.URL

	f := &fakeFetcher{pages: map[string]string{
		"watch?v=vidB": `<html>consent wall</html>`,
		"watch?v=gone": watchPage(`{"owner":{}}`),
	}}
	yt := NewYouTube(f, WithPlayerFallback(player))
	ctx := context.Background()

	desc, ok, err := yt.FetchDescription(ctx, "vidB")
	if err != nil || !ok || desc != "Use code TECH at nordvpn.com" {
		t.Fatalf("FetchDescription = %q, %v, %v", desc, ok, err)
	}
	if gotBody["videoId"] != "vidB" {
		t.Errorf("player request videoId = %v", gotBody["videoId"])
	}

	if _, ok, err := yt.FetchDescription(ctx, "gone"); ok || err != nil {
		t.Errorf("missing videoDetails should be (false, nil), got (%v, %v)", ok, err)
	}
}
