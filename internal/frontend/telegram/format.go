package telegram

import (
	"fmt"
	"strings"

	"github.com/vadimtrunov/CriticsPicks/internal/picks"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

// mdV2Replacer escapes special characters for Telegram MarkdownV2.
var mdV2Replacer = strings.NewReplacer(
	`\`, `\\`,
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// mdV2URLReplacer escapes the characters MarkdownV2 reserves inside (...) link targets.
var mdV2URLReplacer = strings.NewReplacer(`\`, `\\`, ")", "\\)")

// EscapeMdV2 escapes a string for safe use in Telegram MarkdownV2.
func EscapeMdV2(s string) string {
	return mdV2Replacer.Replace(s)
}

// FormatBold returns MarkdownV2 bold text.
func FormatBold(s string) string {
	return "*" + EscapeMdV2(s) + "*"
}

// FormatItalic returns MarkdownV2 italic text.
func FormatItalic(s string) string {
	return "_" + EscapeMdV2(s) + "_"
}

// FormatLink returns a MarkdownV2 inline link.
func FormatLink(text, target string) string {
	return "[" + EscapeMdV2(text) + "](" + mdV2URLReplacer.Replace(target) + ")"
}

// formatPage renders one page as MarkdownV2 blocks: a header, one block per
// pick and the attribution footer. Blocks are kept whole when splitting.
func formatPage(ctrl *picks.Controller, view picks.View) []string {
	header := FormatBold("Critics’ Picks") + " 🎥\n" +
		FormatItalic(fmt.Sprintf("Page %d", view.Offset/picks.BatchSize+1))
	blocks := []string{header}

	switch {
	case view.Err != nil:
		blocks = append(blocks, EscapeMdV2(loadFailedMsg))
	case view.Page == nil || len(view.Page.Picks) == 0:
		blocks = append(blocks, EscapeMdV2(noPicksMsg))
	default:
		for _, p := range view.Page.Picks {
			var sb strings.Builder
			sb.WriteString("*" + FormatLink(p.DisplayTitle, picks.IMDbSearchURL(p.DisplayTitle)) + "*")
			if ago, err := ctrl.RelativeTime(p); err == nil {
				sb.WriteString("\n" + FormatItalic(ago))
			}
			if p.SummaryShort != "" {
				sb.WriteString("\n" + EscapeMdV2(p.SummaryShort))
			}
			if p.MPAARating != "" {
				sb.WriteString("\n`" + EscapeMdV2(p.MPAARating) + "` mpaa rating")
			}
			blocks = append(blocks, sb.String())
		}
	}

	blocks = append(blocks, FormatLink("Data provided by The New York Times", "https://developer.nytimes.com"))
	return blocks
}

// splitMessage joins blocks with blank lines into messages no longer than
// limit bytes. A single oversized block is cut on rune boundaries.
func splitMessage(blocks []string, limit int) []string {
	const sep = "\n\n"
	var (
		msgs []string
		cur  strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			msgs = append(msgs, cur.String())
			cur.Reset()
		}
	}
	for _, block := range blocks {
		for len(block) > limit {
			flush()
			cut := limit
			for cut > 0 && !isRuneStart(block[cut]) {
				cut--
			}
			msgs = append(msgs, block[:cut])
			block = block[cut:]
		}
		if cur.Len() > 0 && cur.Len()+len(sep)+len(block) > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(block)
	}
	flush()
	return msgs
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
