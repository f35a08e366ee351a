package report

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/summary"
)

// Block is a Slack Block Kit layout block. Only the fields used by
// reports are modelled.
type Block struct {
	Type     string       `json:"type"`
	Text     *TextObject  `json:"text,omitempty"`
	Elements []TextObject `json:"elements,omitempty"`
}

// TextObject is a Block Kit text element.
type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Block and text types.
const (
	BlockHeader  = "header"
	BlockSection = "section"
	BlockContext = "context"
	BlockDivider = "divider"

	TextPlain    = "plain_text"
	TextMarkdown = "mrkdwn"
)

// sectionLimit is the Block Kit maximum length of a section's text.
const sectionLimit = 3000

func (f formatter) blocks(sum summary.Summary, groups []group) []Block {
	blocks := []Block{
		{Type: BlockHeader, Text: &TextObject{Type: TextPlain, Text: f.title, Emoji: true}},
		{Type: BlockContext, Elements: []TextObject{
			{Type: TextMarkdown, Text: "*Range:* " + f.rangeLabel(sum)},
			{Type: TextMarkdown, Text: "*Samples:* " + strconv.Itoa(sum.Observations)},
		}},
		{Type: BlockDivider},
	}

	for _, g := range groups {
		var b strings.Builder
		b.WriteString("*" + g.category.Title() + "*")
		for _, cs := range g.channels {
			b.WriteString("\n")
			b.WriteString(f.markdownLine(cs))
		}
		blocks = append(blocks, Block{
			Type: BlockSection,
			Text: &TextObject{Type: TextMarkdown, Text: truncate(b.String(), sectionLimit)},
		})
	}
	return blocks
}

// markdownLine is the Block Kit rendering of a channel, adding mean and
// latest value to what the text line carries.
func (f formatter) markdownLine(cs summary.ChannelSummary) string {
	label := cs.Channel.Label()
	if !cs.HasData() {
		return "• " + label + ": _no data_"
	}

	unit := cs.Channel.Unit
	parts := []string{
		"min `" + f.quantity(cs.Min.Value, unit) + "`",
		"max `" + f.quantity(cs.Max.Value, unit) + "`",
	}
	if cs.Mean != nil {
		parts = append(parts, "mean `"+f.quantity(*cs.Mean, unit)+"`")
	}
	parts = append(parts,
		"current `"+f.quantity(cs.Last.Value, unit)+"`",
		"rate `"+f.rate(cs)+"`",
	)
	return "• " + label + ": " + strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - len("…")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
