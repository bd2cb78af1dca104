package console

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// TableConfig describes one table to render, grounded on the teacher's own
// console.TableConfig (pkg/console/console.go), trimmed of the header/total
// styling this project doesn't need.
type TableConfig struct {
	Headers   []string
	Rows      [][]string
	Title     string
	ShowTotal bool
	TotalRow  []string
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().PaddingRight(1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

// RenderTable renders config using lipgloss/table, falling back to an
// unstyled border when stdout isn't a terminal.
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 {
		return ""
	}

	var output strings.Builder
	if config.Title != "" {
		output.WriteString(titleStyle.Render(config.Title))
		output.WriteString("\n")
	}

	rows := config.Rows
	if config.ShowTotal && len(config.TotalRow) > 0 {
		rows = append(rows, config.TotalRow)
	}

	t := table.New().
		Headers(config.Headers...).
		Rows(rows...).
		Border(lipgloss.NormalBorder())

	if isatty.IsTerminal(os.Stdout.Fd()) {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	}

	output.WriteString(t.String())
	output.WriteString("\n")
	return output.String()
}
