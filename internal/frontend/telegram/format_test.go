package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/vadimtrunov/CriticsPicks/internal/core"
	"github.com/vadimtrunov/CriticsPicks/internal/picks"
	"github.com/vadimtrunov/CriticsPicks/internal/timeago"
)

func TestEscapeMdV2(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text", in: "hello world", want: "hello world"},
		{name: "dots", in: "hello.", want: "hello\\."},
		{name: "exclamation", in: "Done!", want: "Done\\!"},
		{name: "parentheses", in: "(2024)", want: "\\(2024\\)"},
		{name: "brackets", in: "[link]", want: "\\[link\\]"},
		{name: "underscores", in: "foo_bar", want: "foo\\_bar"},
		{name: "stars", in: "*bold*", want: "\\*bold\\*"},
		{name: "mixed", in: "Dune (2021) - 8.0*", want: "Dune \\(2021\\) \\- 8\\.0\\*"},
		{name: "all specials", in: "_*[]()~`>#+-=|{}.!", want: "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeMdV2(tt.in)
			if got != tt.want {
				t.Errorf("EscapeMdV2(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatBold(t *testing.T) {
	got := FormatBold("Past Lives (2023)")
	want := "*Past Lives \\(2023\\)*"
	if got != want {
		t.Errorf("FormatBold = %q, want %q", got, want)
	}
}

func TestFormatItalic(t *testing.T) {
	got := FormatItalic("3 days ago")
	want := "_3 days ago_"
	if got != want {
		t.Errorf("FormatItalic = %q, want %q", got, want)
	}
}

func TestFormatLink(t *testing.T) {
	got := FormatLink("Tár.", "https://example.com/a_(b)")
	want := "[Tár\\.](https://example.com/a_(b\\))"
	if got != want {
		t.Errorf("FormatLink = %q, want %q", got, want)
	}
}

func fixedController() *picks.Controller {
	now := time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC)
	return picks.NewController(nil, nil, picks.WithClock(timeago.ClockFunc(func() time.Time { return now })))
}

func TestFormatPage(t *testing.T) {
	view := picks.View{
		Offset: 40,
		Page: &core.Page{Picks: []core.Pick{
			{DisplayTitle: "Past Lives", SummaryShort: "Two friends.", PublicationDate: "2024-01-01", MPAARating: "PG-13"},
			{DisplayTitle: "Showing Up", PublicationDate: "not a date"},
		}},
	}

	blocks := formatPage(fixedController(), view)
	if len(blocks) != 4 {
		t.Fatalf("expected header, 2 picks and footer, got %d blocks", len(blocks))
	}
	if !strings.Contains(blocks[0], "Page 3") {
		t.Errorf("expected page number in header, got %q", blocks[0])
	}
	first := blocks[1]
	for _, want := range []string{
		"[Past Lives](https://www.imdb.com/find/?s=tt&q=Past%20Lives)",
		"_3 days ago_",
		"Two friends\\.",
		"`PG\\-13` mpaa rating",
	} {
		if !strings.Contains(first, want) {
			t.Errorf("first block missing %q:\n%s", want, first)
		}
	}
	if strings.Contains(blocks[2], "ago") {
		t.Error("unparsable date should omit the relative time")
	}
	if !strings.Contains(blocks[3], "Data provided by The New York Times") {
		t.Error("expected attribution footer")
	}
}

func TestFormatPage_Error(t *testing.T) {
	blocks := formatPage(fixedController(), picks.View{Page: &core.Page{}, Err: errors.New("boom")})
	if len(blocks) != 3 || !strings.Contains(blocks[1], "Could not load picks") {
		t.Errorf("unexpected blocks: %q", blocks)
	}
}

func TestSplitMessage(t *testing.T) {
	t.Run("fits in one", func(t *testing.T) {
		got := splitMessage([]string{"a", "b"}, 100)
		if len(got) != 1 || got[0] != "a\n\nb" {
			t.Errorf("unexpected split: %q", got)
		}
	})

	t.Run("blocks kept whole", func(t *testing.T) {
		blocks := []string{strings.Repeat("x", 6), strings.Repeat("y", 6), strings.Repeat("z", 6)}
		got := splitMessage(blocks, 14)
		if len(got) != 2 || got[0] != "xxxxxx\n\nyyyyyy" || got[1] != "zzzzzz" {
			t.Errorf("unexpected split: %q", got)
		}
	})

	t.Run("oversized block cut on rune boundary", func(t *testing.T) {
		block := strings.Repeat("é", 10) // 20 bytes
		got := splitMessage([]string{block}, 7)
		total := 0
		for _, msg := range got {
			if len(msg) > 7 {
				t.Errorf("message exceeds limit: %d bytes", len(msg))
			}
			if !utf8.ValidString(msg) {
				t.Errorf("message split inside a rune: %q", msg)
			}
			total += utf8.RuneCountInString(msg)
		}
		if total != 10 {
			t.Errorf("expected 10 runes across messages, got %d", total)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := splitMessage(nil, 10); len(got) != 0 {
			t.Errorf("expected no messages, got %q", got)
		}
	})
}
