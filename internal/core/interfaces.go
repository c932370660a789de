package core

import "context"

// PicksSource defines the interface for anything that can produce a page of picks at an offset
type PicksSource interface {
	// FetchPage returns the page that starts at offset (a multiple of the batch size)
	FetchPage(ctx context.Context, offset int) (*Page, error)
}

// Frontend defines the interface for user-facing frontends (terminal, web, Telegram)
type Frontend interface {
	// Start starts the frontend and blocks until ctx is canceled
	Start(ctx context.Context) error

	// Stop stops the frontend
	Stop(ctx context.Context) error

	// Name returns the frontend name (e.g., "web", "telegram")
	Name() string
}

// Pick represents one critic-selected movie review
type Pick struct {
	DisplayTitle    string `json:"display_title"`          // Movie title as displayed by the reviewer
	SummaryShort    string `json:"summary_short"`          // One-paragraph review summary
	PublicationDate string `json:"publication_date"`       // ISO-8601 publication date
	MPAARating      string `json:"mpaa_rating"`            // MPAA rating, possibly empty
	ImageSource     string `json:"image_source,omitempty"` // Image URL, empty when the review has no image
	Byline          string `json:"byline,omitempty"`       // Critic name
	Headline        string `json:"headline,omitempty"`     // Review headline
	CriticsPick     bool   `json:"critics_pick"`           // Whether the critic marked it as a pick
	LinkURL         string `json:"link_url,omitempty"`     // Full review URL
	LinkText        string `json:"link_text,omitempty"`    // Suggested link text for LinkURL
	OpeningDate     string `json:"opening_date,omitempty"` // Theatrical opening date
	DateUpdated     string `json:"date_updated,omitempty"` // Last update timestamp
}

// HasImage reports whether the pick carries an image descriptor with a non-empty source
func (p Pick) HasImage() bool {
	return p.ImageSource != ""
}

// Key returns the identity of the pick, stable for a given review
func (p Pick) Key() string {
	if p.LinkURL != "" {
		return p.LinkURL
	}
	return p.DisplayTitle + "|" + p.PublicationDate
}

// Page represents one batch of picks returned for a single offset.
// A Page is read-only once constructed; caches share the same value between callers.
type Page struct {
	Offset    int    `json:"offset"`              // Offset the page was fetched at
	Picks     []Pick `json:"picks"`               // Picks in display order
	HasMore   bool   `json:"has_more"`            // Whether another page exists past this one
	Copyright string `json:"copyright,omitempty"` // Upstream copyright notice
}

// ImagePicks returns the picks that are eligible for the image grid, in display order
func (p *Page) ImagePicks() []Pick {
	if p == nil {
		return nil
	}
	out := make([]Pick, 0, len(p.Picks))
	for _, pick := range p.Picks {
		if pick.HasImage() {
			out = append(out, pick)
		}
	}
	return out
}
