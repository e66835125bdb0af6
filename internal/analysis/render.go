package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datacatalog-cli/internal/normalize"
)

// Format selects the rendering of a Profile.
type Format string

const (
	FormatStructured Format = "structured"
	FormatTabular    Format = "tabular_text"
	FormatProse      Format = "prose_text"
)

// ErrUnsupportedOutputFormat is returned for an unknown Format.
var ErrUnsupportedOutputFormat = errors.New("unsupported output format")

// ParseFormat accepts the canonical names plus the json, markdown and
// natural_language aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured", "json":
		return FormatStructured, nil
	case "tabular_text", "tabular", "markdown", "md":
		return FormatTabular, nil
	case "prose_text", "prose", "natural_language", "nl":
		return FormatProse, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOutputFormat, s)
}

// Output is a rendered profile. Data is set for structured output, Text for
// the text formats.
type Output struct {
	Format Format
	Data   *normalize.OrderedMap
	Text   string
}

// String returns the text form; structured output is indented JSON.
func (o Output) String() string {
	if o.Format != FormatStructured {
		return o.Text
	}
	b, err := json.MarshalIndent(o.Data, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// Render converts p to the requested format. On error no output is produced.
func Render(p *Profile, f Format) (Output, error) {
	switch f {
	case FormatStructured:
		return Output{Format: f, Data: p.Map()}, nil
	case FormatTabular:
		return Output{Format: f, Text: renderTabular(p)}, nil
	case FormatProse:
		return Output{Format: f, Text: renderProse(p)}, nil
	}
	return Output{}, fmt.Errorf("%w: %q", ErrUnsupportedOutputFormat, string(f))
}

func renderTabular(p *Profile) string {
	var b strings.Builder
	b.WriteString("# Dataset Profile\n")
	b.WriteString(fmt.Sprintf("Total columns: %d\n\n", len(p.Columns)))
	b.WriteString("## Column Details\n")
	b.WriteString("| Column Name | Data Type | Sample Value | Stats | Additional Info |\n")
	b.WriteString("|------------|-----------|--------------|-------|------------------|\n")
	for _, c := range p.Columns {
		stats := fmt.Sprintf("Total: %d, Nulls: %d (%s), Unique: %d",
			c.TotalCount, c.NullCount, c.NullPercentage, c.UniqueCount)
		var info []string
		if c.Numeric != nil {
			info = append(info,
				"Mean: "+statText(c.Numeric.Mean),
				"Median: "+statText(c.Numeric.Median),
				fmt.Sprintf("Range: [%s, %s]", statText(c.Numeric.Min), statText(c.Numeric.Max)))
		}
		if c.AlternativeNullCount != nil {
			info = append(info, fmt.Sprintf("Alternative nulls: %d", *c.AlternativeNullCount))
		}
		extra := "-"
		if len(info) > 0 {
			extra = strings.Join(info, "<br>")
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			safeCell(c.Name), c.DType, safeCell(sampleText(c.Sample)), stats, extra))
	}
	return b.String()
}

func renderProse(p *Profile) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("This dataset contains %d columns:\n\n", len(p.Columns)))
	for _, c := range p.Columns {
		b.WriteString(fmt.Sprintf("• %s:\n", c.Name))
		b.WriteString(fmt.Sprintf("  - Type: %s\n", c.DType))
		b.WriteString(fmt.Sprintf("  - Sample value: %s\n", sampleText(c.Sample)))
		b.WriteString(fmt.Sprintf("  - Contains %d entries with %d nulls (%s)\n", c.TotalCount, c.NullCount, c.NullPercentage))
		b.WriteString(fmt.Sprintf("  - Has %d unique values\n", c.UniqueCount))
		if c.Numeric != nil {
			b.WriteString(fmt.Sprintf("  - Numerical stats: mean=%s, median=%s\n", statText(c.Numeric.Mean), statText(c.Numeric.Median)))
			b.WriteString(fmt.Sprintf("  - Range: %s to %s\n", statText(c.Numeric.Min), statText(c.Numeric.Max)))
		}
		if c.AlternativeNullCount != nil {
			b.WriteString(fmt.Sprintf("  - Found %d alternative null representations\n", *c.AlternativeNullCount))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// sampleText prints float samples with two decimals like the statistics;
// other values use their normalized string form.
func sampleText(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return normalize.String(v)
}

// statText prints a rounded statistic with two decimals, or None.
func statText(f *float64) string {
	if f == nil {
		return "None"
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

// safeCell keeps a value on one table row.
func safeCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
