package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// TextOptions controls terminal output.
type TextOptions struct {
	// Color enables ANSI background colors for the probability band.
	Color bool
}

var ansiBand = map[Band]string{
	BandHigh:   "\x1b[42;30m",
	BandMedium: "\x1b[43;30m",
	BandLow:    "\x1b[41;37m",
}

const ansiReset = "\x1b[0m"

// WriteText renders cards for a terminal. An empty slice prints a notice
// rather than nothing.
func WriteText(w io.Writer, cards []Card, opts TextOptions) error {
	if len(cards) == 0 {
		_, err := fmt.Fprintln(w, "No suggestions returned.")
		return err
	}
	for i, card := range cards {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeCard(w, card, opts); err != nil {
			return err
		}
	}
	return nil
}

func writeCard(w io.Writer, card Card, opts TextOptions) error {
	badge := fmt.Sprintf(" %d%% %s ", card.Percent, strings.ToUpper(string(card.Band)))
	if opts.Color {
		badge = ansiBand[card.Band] + badge + ansiReset
	}

	builder := &strings.Builder{}
	fmt.Fprintf(builder, "%d. %s %s\n", card.Index+1, card.Name, badge)
	fmt.Fprintf(builder, "   Common Name: %s\n", card.CommonName)
	fmt.Fprintf(builder, "   Probability: %d%%\n", card.Percent)
	fmt.Fprintf(builder, "   %s\n", card.Description)
	if len(card.Synonyms) > 0 {
		fmt.Fprintf(builder, "   Synonyms: %s\n", strings.Join(card.Synonyms, ", "))
	}
	builder.WriteString("   Taxonomy:\n")
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "Name"})
	table.SetAutoWrapText(false)
	for _, row := range card.Taxonomy.Rows() {
		table.Append([]string{row[0], row[1]})
	}
	table.Render()

	if card.ReadMoreURL != "" {
		if _, err := fmt.Fprintf(w, "   Read more → %s\n", card.ReadMoreURL); err != nil {
			return err
		}
	}
	return nil
}
