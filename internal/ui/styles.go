package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorError     = lipgloss.Color("196") // Red
	colorWarning   = lipgloss.Color("214") // Orange
	colorSuccess   = lipgloss.Color("78")  // Green
	colorHighlight = lipgloss.Color("212") // Pink
)

// HeaderStyle renders the top bar: batch id, summary counts, last score.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// ColumnHeader style for the field name row of the record table.
var ColumnHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorSecondary)

// NormalCell style for unselected cells.
var NormalCell = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255"))

// SelectedCell style for the cell under the cursor.
var SelectedCell = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary)

// ErrorCell style for a cell whose field carries a validation error.
var ErrorCell = lipgloss.NewStyle().
	Foreground(colorError)

// SelectedErrorCell style for an error cell under the cursor.
var SelectedErrorCell = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorError).
	Background(lipgloss.Color("236"))

// RowMarkerError marks rows with unresolved issues.
var RowMarkerError = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorError)

// RowMarkerWarning marks rows carrying warnings only.
var RowMarkerWarning = lipgloss.NewStyle().
	Foreground(colorWarning)

// PanelTitle style for the error/detail panel heading.
var PanelTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// PanelError style for error lines in the detail panel.
var PanelError = lipgloss.NewStyle().
	Foreground(colorError)

// PanelWarning style for warning lines in the detail panel.
var PanelWarning = lipgloss.NewStyle().
	Foreground(colorWarning)

// StatusBar style for the bottom bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusError style for failure messages in the status bar.
var StatusError = lipgloss.NewStyle().
	Foreground(colorError).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusSuccess style for score/clean messages.
var StatusSuccess = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// PayloadPane style for the raw payload view.
var PayloadPane = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorSecondary).
	Padding(0, 1)
