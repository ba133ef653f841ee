package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/anatolykoptev/go_promo/internal/engine"
)

// Innertube /player endpoint, called as the ANDROID client. Its videoDetails
// carry the full description even when the watch page is a consent wall or an
// experiment layout without a secondary info renderer.
const (
	ytPlayerURL      = "https://www.youtube.com/youtubei/v1/player"
	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
	maxPlayerBytes   = 3 << 20
)

type playerReq struct {
	VideoID        string    `json:"videoId"`
	Context        playerCtx `json:"context"`
	RacyCheckOk    bool      `json:"racyCheckOk"`
	ContentCheckOk bool      `json:"contentCheckOk"`
}

type playerCtx struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion"`
	Hl                string `json:"hl"`
	Gl                string `json:"gl"`
}

// PlayerAPI reads video descriptions from the Innertube player endpoint.
type PlayerAPI struct {
	api      *engine.APIClient
	endpoint string
}

// NewPlayerAPI creates a PlayerAPI sending through api, normally
// Fetcher.APIClient so player calls share the page rate limit.
func NewPlayerAPI(api *engine.APIClient) *PlayerAPI {
	if api == nil {
		api = engine.NewAPIClient(engine.Cfg.HTTPClient, nil)
	}
	return &PlayerAPI{api: api, endpoint: ytPlayerURL}
}

// Description returns videoDetails.shortDescription for videoID.
// ok=false means the response had no description (private, removed, age gated).
func (p *PlayerAPI) Description(ctx context.Context, videoID string) (string, bool, error) {
	body, err := json.Marshal(playerReq{
		VideoID: videoID,
		Context: playerCtx{Client: playerClient{
			ClientName:        "ANDROID",
			ClientVersion:     ytAndroidVersion,
			AndroidSdkVersion: 30,
			Hl:                "en",
			Gl:                "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return "", false, err
	}

	resp, err := p.api.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"?prettyPrint=false", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return req, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("innertube player %s: %w", videoID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", false, fmt.Errorf("innertube player %s: HTTP %d: %s", videoID, resp.StatusCode, snippet)
	}

	var decoded any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPlayerBytes)).Decode(&decoded); err != nil {
		return "", false, fmt.Errorf("innertube player %s: decode: %w", videoID, err)
	}
	desc, ok := NewNode(decoded).Path("videoDetails", "shortDescription").Str()
	if !ok || desc == "" {
		return "", false, nil
	}
	return desc, true, nil
}
