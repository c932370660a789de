package picks

import "github.com/vadimtrunov/CriticsPicks/internal/core"

// picksResponse is the NYT movie reviews picks.json payload.
// Results is a pointer so that an absent "results" key can be told apart
// from an empty list.
type picksResponse struct {
	Status     string        `json:"status"`
	Copyright  string        `json:"copyright"`
	HasMore    bool          `json:"has_more"`
	NumResults int           `json:"num_results"`
	Results    *[]reviewJSON `json:"results"`
}

// reviewJSON is one element of the results array.
type reviewJSON struct {
	DisplayTitle    string          `json:"display_title"`
	MPAARating      string          `json:"mpaa_rating"`
	CriticsPick     int             `json:"critics_pick"`
	Byline          string          `json:"byline"`
	Headline        string          `json:"headline"`
	SummaryShort    string          `json:"summary_short"`
	PublicationDate string          `json:"publication_date"`
	OpeningDate     *string         `json:"opening_date"`
	DateUpdated     string          `json:"date_updated"`
	Link            *linkJSON       `json:"link"`
	Multimedia      *multimediaJSON `json:"multimedia"`
}

type linkJSON struct {
	Type              string `json:"type"`
	URL               string `json:"url"`
	SuggestedLinkText string `json:"suggested_link_text"`
}

type multimediaJSON struct {
	Type   string `json:"type"`
	Src    string `json:"src"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// toPage converts the payload into a Page. A payload without "results" is an
// empty page with HasMore forced to false.
func (r picksResponse) toPage(offset int) *core.Page {
	page := &core.Page{
		Offset:    offset,
		Copyright: r.Copyright,
	}
	if r.Results == nil {
		page.Picks = []core.Pick{}
		return page
	}
	page.HasMore = r.HasMore
	page.Picks = make([]core.Pick, 0, len(*r.Results))
	for _, rv := range *r.Results {
		page.Picks = append(page.Picks, rv.toPick())
	}
	return page
}

func (rv reviewJSON) toPick() core.Pick {
	p := core.Pick{
		DisplayTitle:    rv.DisplayTitle,
		SummaryShort:    rv.SummaryShort,
		PublicationDate: rv.PublicationDate,
		MPAARating:      rv.MPAARating,
		Byline:          rv.Byline,
		Headline:        rv.Headline,
		CriticsPick:     rv.CriticsPick == 1,
		DateUpdated:     rv.DateUpdated,
	}
	if rv.OpeningDate != nil {
		p.OpeningDate = *rv.OpeningDate
	}
	if rv.Link != nil {
		p.LinkURL = rv.Link.URL
		p.LinkText = rv.Link.SuggestedLinkText
	}
	if rv.Multimedia != nil {
		p.ImageSource = rv.Multimedia.Src
	}
	return p
}
