package sources

import "github.com/anatolykoptev/go_promo/internal/engine"

// ReadSearchResults lists the video candidates on a search results page.
//
// Path: contents.twoColumnSearchResultsRenderer.primaryContents.sectionListRenderer
// .contents[].itemSectionRenderer.contents[].videoRenderer. Shelves, ads, channel
// cards and any entry missing an id, owner or title are skipped; only a missing
// upload-date text is tolerated. Document order is kept and every candidate is
// tagged with domain.
func ReadSearchResults(tree Node, domain string) []engine.CandidateVideo {
	sections := tree.Path("contents", "twoColumnSearchResultsRenderer", "primaryContents",
		"sectionListRenderer", "contents").Items()

	var out []engine.CandidateVideo
	for _, section := range sections {
		for _, item := range section.Path("itemSectionRenderer", "contents").Items() {
			vr := item.Key("videoRenderer")
			if !vr.Exists() {
				continue
			}
			if v, ok := readVideoRenderer(vr, domain); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

func readVideoRenderer(vr Node, domain string) (engine.CandidateVideo, bool) {
	owner := vr.Path("ownerText", "runs").Index(0)

	videoID, ok1 := vr.Key("videoId").Str()
	channelID, ok2 := owner.Path("navigationEndpoint", "browseEndpoint", "browseId").Str()
	channelName, ok3 := owner.Key("text").Str()
	title, ok4 := vr.Path("title", "runs").Index(0).Key("text").Str()
	if !ok1 || !ok2 || !ok3 || !ok4 || videoID == "" || channelID == "" {
		return engine.CandidateVideo{}, false
	}

	return engine.CandidateVideo{
		VideoID:        videoID,
		ChannelID:      channelID,
		ChannelName:    channelName,
		Title:          title,
		DetectedDomain: domain,
		UploadDateText: vr.Path("publishedTimeText", "simpleText").StrOr(""),
	}, true
}
