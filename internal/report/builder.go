package report

import (
	"fmt"
	"strings"
)

// Builder accumulates a markdown document section by section.
type Builder struct {
	sb strings.Builder
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) H1(text string) *Builder {
	fmt.Fprintf(&b.sb, "# %s\n\n", text)
	return b
}

func (b *Builder) H2(text string) *Builder {
	fmt.Fprintf(&b.sb, "## %s\n\n", text)
	return b
}

func (b *Builder) H3(text string) *Builder {
	fmt.Fprintf(&b.sb, "### %s\n\n", text)
	return b
}

// Para writes a paragraph followed by a blank line. Printf-style.
func (b *Builder) Para(format string, args ...any) *Builder {
	fmt.Fprintf(&b.sb, format, args...)
	b.sb.WriteString("\n\n")
	return b
}

// Field writes a "**Name**: value" line, substituting "(empty)" for blanks.
func (b *Builder) Field(name, value string) *Builder {
	if strings.TrimSpace(value) == "" {
		value = "(empty)"
	}
	fmt.Fprintf(&b.sb, "**%s**: %s\n\n", name, value)
	return b
}

// Bullet writes a single list item. Printf-style.
func (b *Builder) Bullet(format string, args ...any) *Builder {
	b.sb.WriteString("- ")
	fmt.Fprintf(&b.sb, format, args...)
	b.sb.WriteString("\n")
	return b
}

// EndList terminates a bullet list with a blank line.
func (b *Builder) EndList() *Builder {
	b.sb.WriteString("\n")
	return b
}

// Table writes a markdown table. Rows shorter than the header are padded.
func (b *Builder) Table(header []string, rows [][]string) *Builder {
	b.sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.sb.WriteString("|" + strings.Repeat("---|", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(header))
		for i := range cells {
			if i < len(row) {
				cells[i] = escapeCell(row[i])
			}
		}
		b.sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.sb.WriteString("\n")
	return b
}

// CodeBlock writes a fenced block with the given language tag.
func (b *Builder) CodeBlock(lang, content string) *Builder {
	fmt.Fprintf(&b.sb, "```%s\n%s\n```\n\n", lang, strings.TrimRight(content, "\n"))
	return b
}

// Rule writes a horizontal rule.
func (b *Builder) Rule() *Builder {
	b.sb.WriteString("---\n\n")
	return b
}

func (b *Builder) String() string {
	return b.sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
