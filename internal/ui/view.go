package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/session"
)

// Column widths for the record table, indexed like api.FieldNames.
var colWidths = []int{14, 10, 20, 16, 12, 10}

// columnLabels are the field names with underscores spaced, title-cased
// per word.
var columnLabels = []string{"Doc ID", "Type", "Counterparty", "Project", "Expiry Date", "Amount"}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, a.renderHeader())
	sections = append(sections, a.renderTable())
	if a.mode == modeEditField {
		sections = append(sections, "  edit "+columnLabels[a.field]+": "+a.fieldInput.View())
	}
	if a.mode == modeEnterBatch {
		sections = append(sections, "  "+a.batchInput.View())
	}
	sections = append(sections, a.renderErrorPanel())
	if a.showPayload {
		sections = append(sections, a.renderPayloadPane())
	}
	sections = append(sections, a.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a App) renderHeader() string {
	text := fmt.Sprintf("  LUMICORE  ·  batch %s", a.batchID)
	if b := a.sess.Batch(); b != nil {
		s := b.Summary
		text += fmt.Sprintf("  ·  %d raw → %d normalized  ·  %d dupes removed  ·  %d with errors",
			s.RawItems, s.NormalizedItems, s.DuplicatesRemoved, s.ItemsWithErrors)
	}
	if sc := a.sess.LastScore(); sc != nil {
		text += fmt.Sprintf("  ·  score %.2f", sc.Score)
	} else if a.prevScore != "" {
		text += "  ·  last score " + a.prevScore
	}
	return HeaderStyle.Width(a.width).Render(text)
}

func (a App) renderTable() string {
	records := a.sess.Records()
	if len(records) == 0 {
		return NormalCell.Render("\n  no batch loaded — press r to fetch\n")
	}

	var b strings.Builder

	b.WriteString("    ")
	for i, label := range columnLabels {
		b.WriteString(ColumnHeader.Render(pad(label, colWidths[i])))
		b.WriteString(" ")
	}
	b.WriteString("\n")

	for row, rec := range records {
		byField, rowOnly := a.sess.FieldErrors(row)

		marker := "  "
		if a.sess.RowIssueCount(row) > 0 {
			marker = RowMarkerError.Render("! ")
		} else if len(rec.Warnings) > 0 {
			marker = RowMarkerWarning.Render("~ ")
		}
		b.WriteString("  " + marker)

		for col, name := range api.FieldNames {
			val := pad(rec.FieldValue(name), colWidths[col])
			selected := row == a.cursor && col == a.field
			hasErr := len(byField[name]) > 0
			// Unattributed details stay at row level; tint the whole row.
			if !hasErr && len(rowOnly) > 0 {
				hasErr = col == 0
			}
			switch {
			case selected && hasErr:
				b.WriteString(SelectedErrorCell.Render(val))
			case selected:
				b.WriteString(SelectedCell.Render(val))
			case hasErr:
				b.WriteString(ErrorCell.Render(val))
			default:
				b.WriteString(NormalCell.Render(val))
			}
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (a App) renderErrorPanel() string {
	var lines []string

	byField, rowOnly := a.sess.FieldErrors(a.cursor)
	if len(byField) > 0 || len(rowOnly) > 0 {
		lines = append(lines, PanelTitle.Render(fmt.Sprintf("  row %d issues:", a.cursor)))
		for _, name := range api.FieldNames {
			for _, d := range byField[name] {
				lines = append(lines, PanelError.Render(fmt.Sprintf("    %s: %s", name, d)))
			}
		}
		for _, d := range rowOnly {
			lines = append(lines, PanelError.Render("    "+d))
		}
	}

	if rec, ok := a.sess.Record(a.cursor); ok && len(rec.Warnings) > 0 {
		for _, w := range rec.Warnings {
			lines = append(lines, PanelWarning.Render("    warning: "+w))
		}
	}

	if global := a.sess.GlobalErrors(); len(global) > 0 {
		lines = append(lines, PanelTitle.Render("  batch issues:"))
		for _, g := range global {
			lines = append(lines, PanelError.Render("    "+g))
		}
	}

	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func (a App) renderPayloadPane() string {
	b := a.sess.Batch()
	if b == nil || len(b.Raw) == 0 {
		return PayloadPane.Width(a.width - 2).Render("no raw payload")
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, b.Raw, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(b.Raw)
	}
	text := pretty.String()
	if max := a.height / 2 * a.width; len(text) > max && max > 0 {
		text = text[:max] + "…"
	}
	return PayloadPane.Width(a.width - 2).Render(text)
}

func (a App) renderStatusBar() string {
	validating, submitting := a.sess.Pending()
	pending := a.fetching || validating || submitting

	left := a.sess.Phase().String()
	if pending {
		left = a.spin.View() + " " + left
	}

	msg := a.sess.Status()
	if a.inputErr != "" {
		msg = a.inputErr
	}
	if a.retryArmed {
		if remaining := time.Until(a.retryAt); remaining > 0 {
			msg += fmt.Sprintf("  ·  retrying in %ds", int(remaining.Seconds())+1)
		}
	}
	if rs := a.sess.RetryState(); rs != nil && !a.retryArmed {
		if rs.SuggestedWait > 0 {
			msg += fmt.Sprintf("  ·  server asks to wait %s — press r to retry", rs.SuggestedWait)
		} else {
			msg += "  ·  press r to retry"
		}
	}

	hints := "[↑↓←→] move  [enter] edit  [v] validate  [s] submit"
	if !a.sess.CanSubmit() {
		hints = "[↑↓←→] move  [enter] edit  [v] validate"
	}
	hints += "  [r] refresh  [b] batch  [p] payload  [q] quit"

	text := fmt.Sprintf("  %s  ·  %s  ·  %s", left, msg, hints)
	style := StatusBar
	if a.inputErr != "" || a.sess.RetryState() != nil {
		style = StatusError
	} else if p := a.sess.Phase(); p == session.PhaseSubmitted || p == session.PhaseValidatedClean {
		style = StatusSuccess
	}
	return style.Width(a.width).Render(text)
}

// pad truncates or right-pads s to width runes.
func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		if width <= 1 {
			return string(runes[:width])
		}
		return string(runes[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(runes))
}
