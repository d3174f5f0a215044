package documents

import (
	"context"
	"fmt"
	"html"
	"io"
	"strconv"

	"costdesk/engine/lifecycle"
	"costdesk/engine/rows"
	sharedhtml "costdesk/frontend/shared/html"
	"costdesk/frontend/shared/nav"
	"costdesk/models"

	"github.com/a-h/templ"
)

func esc(s string) string { return html.EscapeString(s) }

// DocumentsPage renders the documents index.
func DocumentsPage(data PageData, session models.Session) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Documents</h1>"); err != nil {
			return err
		}
		if data.Message != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash error\">%s</div>", esc(data.Message)); err != nil {
				return err
			}
		}
		if data.CanCreate {
			if _, err := io.WriteString(w, "<form method=\"POST\" action=\"/desk/documents\" style=\"margin-bottom:1rem\"><select name=\"doc_type\">"); err != nil {
				return err
			}
			for _, t := range DocTypes {
				if _, err := fmt.Fprintf(w, "<option value=\"%s\">%s</option>", t, esc(TypeLabel(t))); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</select> <button type=\"submit\">New document</button></form>"); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, "<table class=\"grid\"><thead><tr><th>Number</th><th>Type</th><th>Status</th><th>Supplier</th><th>Job</th><th class=\"numeric\">Lines</th><th>Updated</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, item := range data.Items {
			label := lifecycle.Label(item.DocType, lifecycle.Status(item.Status))
			if _, err := fmt.Fprintf(w,
				"<tr><td><a href=\"/desk/documents/%d\">%s</a></td><td>%s</td><td><span class=\"status-chip %s\">%s</span></td><td>%s</td><td>%s</td><td class=\"numeric\">%d</td><td>%s</td></tr>",
				item.ID, esc(item.DocNumber), esc(TypeLabel(item.DocType)), esc(item.Status), esc(label), esc(item.Supplier), esc(item.JobRef), item.LineCount, esc(item.UpdatedAtUK)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table>")
		return err
	})
	return sharedhtml.Layout("CostDesk - Documents", nav.BuildTopNavData(session), body)
}

// headerInput renders one header field input, disabled when the current
// status locks it.
func headerInput(w io.Writer, data EditorPageData, field, label, inputType string) error {
	disabled := ""
	if !data.CanEdit || !data.Profile.HeaderEditable(field) {
		disabled = " disabled"
	}
	_, err := fmt.Fprintf(w,
		"<p><label>%s<br><input type=\"%s\" name=\"%s\" value=\"%s\"%s></label></p>",
		esc(label), inputType, field, esc(data.Header[field]), disabled)
	return err
}

// DocumentEditorPage renders the full editor: header form, the three
// section grids and the status actions.
func DocumentEditorPage(data EditorPageData, session models.Session) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			"<div data-document-id=\"%d\"><h1>%s %s <span class=\"status-chip %s\">%s</span></h1>",
			data.DocumentID, esc(TypeLabel(data.DocType)), esc(data.DocNumber), esc(string(data.Status)), esc(data.StatusLabel)); err != nil {
			return err
		}
		saveState := "All changes saved"
		saveClass := "save-state"
		if data.SaveFailed {
			saveState = "Save failed; your changes are kept and will be retried"
			saveClass = "save-state error"
		}
		if _, err := fmt.Fprintf(w, "<p class=\"%s\">%s</p>", saveClass, esc(saveState)); err != nil {
			return err
		}
		if data.Message != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash error\">%s</div>", esc(data.Message)); err != nil {
				return err
			}
		}
		for _, m := range data.Messages {
			if _, err := fmt.Fprintf(w, "<div class=\"flash %s\">%s</div>", esc(m.Level), esc(m.Text)); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, "<section><h2>Header</h2>"); err != nil {
			return err
		}
		if err := headerInput(w, data, lifecycle.FieldSupplier, "Supplier", "text"); err != nil {
			return err
		}
		if err := headerInput(w, data, lifecycle.FieldJobRef, "Job reference", "text"); err != nil {
			return err
		}
		if err := headerInput(w, data, lifecycle.FieldCurrency, "Currency", "text"); err != nil {
			return err
		}
		if err := headerInput(w, data, lifecycle.FieldExpectedDate, "Expected date", "date"); err != nil {
			return err
		}
		if err := headerInput(w, data, lifecycle.FieldNotes, "Notes", "text"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</section>"); err != nil {
			return err
		}

		for _, section := range data.Sections {
			if err := renderSection(w, data, section); err != nil {
				return err
			}
		}

		if err := renderStatusActions(w, data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</div>")
		return err
	})
	return sharedhtml.Layout("CostDesk - "+data.DocNumber, nav.BuildTopNavData(session), body)
}

func renderSection(w io.Writer, data EditorPageData, section SectionView) error {
	if _, err := fmt.Fprintf(w, "<section><h2>%s</h2><table class=\"grid\"><thead><tr>", esc(section.Title)); err != nil {
		return err
	}
	cols := sectionColumns(section.Kind)
	for _, col := range cols {
		class := ""
		if col.numeric {
			class = " class=\"numeric\""
		}
		if _, err := fmt.Fprintf(w, "<th%s>%s</th>", class, esc(col.label)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "<th></th></tr></thead><tbody>"); err != nil {
		return err
	}

	rowsEditable := data.CanEdit && data.Profile.LinesEditable
	receivingOnly := rowsEditable && !data.Profile.RowsAddable
	for _, row := range section.Rows {
		if err := renderRow(w, section, row, cols, rowsEditable, receivingOnly, data.Profile.RowsDeletable && data.CanEdit); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</tbody></table>"); err != nil {
		return err
	}
	if data.CanEdit && data.Profile.RowsAddable {
		if _, err := fmt.Fprintf(w,
			"<form method=\"POST\" action=\"/desk/api/documents/%d/rows\"><input type=\"hidden\" name=\"table\" value=\"%s\"><button class=\"secondary\" type=\"submit\">Add row</button></form>",
			data.DocumentID, section.Name); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</section>")
	return err
}

type column struct {
	field   string
	label   string
	numeric bool
}

func sectionColumns(kind rows.Kind) []column {
	switch kind {
	case rows.KindTime:
		return []column{
			{"description", "Description", false},
			{"target_ref", "Cost center", false},
			{"hours", "Hours", true},
			{"unit_cost", "Rate", true},
			{"total", "Total", true},
		}
	default:
		return []column{
			{"description", "Description", false},
			{"part_number", "Part #", false},
			{"target_ref", "Cost center", false},
			{"quantity", "Qty", true},
			{"unit_cost", "Unit cost", true},
			{"total", "Total", true},
			{"received_qty", "Received", true},
		}
	}
}

func renderRow(w io.Writer, section SectionView, row rows.Row, cols []column, editable, receivingOnly, deletable bool) error {
	rowClass := ""
	if !editable {
		rowClass = " class=\"row-locked\""
	}
	if _, err := fmt.Fprintf(w, "<tr%s data-row-key=\"%s\" data-row-id=\"%s\">", rowClass, esc(row.Key), esc(row.ID)); err != nil {
		return err
	}
	for _, col := range cols {
		if col.field == "total" {
			total, known := row.Total()
			cell := "-"
			class := " class=\"numeric cost\""
			if known {
				cell = strconv.FormatFloat(total, 'f', 2, 64)
			}
			if _, err := fmt.Fprintf(w, "<td%s>%s</td>", class, esc(cell)); err != nil {
				return err
			}
			continue
		}
		value := rowFieldValue(row, col.field)
		disabled := ""
		if !editable || (receivingOnly && col.field != "received_qty") {
			disabled = " disabled"
		}
		inputType := "text"
		if col.numeric {
			inputType = "number\" step=\"any"
		}
		class := ""
		if col.numeric {
			class = " class=\"numeric\""
		}
		if _, err := fmt.Fprintf(w,
			"<td%s><input type=\"%s\" name=\"%s\" value=\"%s\" data-table=\"%s\" data-key=\"%s\"%s></td>",
			class, inputType, col.field, esc(value), section.Name, esc(row.Key), disabled); err != nil {
			return err
		}
	}
	if deletable {
		if _, err := fmt.Fprintf(w, "<td><button class=\"secondary\" data-delete-row=\"%s\" type=\"button\">✕</button></td>", esc(row.Key)); err != nil {
			return err
		}
	} else {
		if _, err := io.WriteString(w, "<td></td>"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</tr>")
	return err
}

func rowFieldValue(row rows.Row, field string) string {
	switch field {
	case "description":
		return row.Description
	case "part_number":
		return row.PartNumber
	case "target_ref":
		return row.TargetRef
	case "quantity":
		return trimFloat(row.Quantity)
	case "unit_cost":
		if row.UnitCost == nil {
			return ""
		}
		return strconv.FormatFloat(*row.UnitCost, 'f', -1, 64)
	case "hours":
		return trimFloat(row.Hours)
	case "received_qty":
		return trimFloat(row.ReceivedQty)
	default:
		return ""
	}
}

func trimFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// renderStatusActions shows the transitions available from the current
// status.
func renderStatusActions(w io.Writer, data EditorPageData) error {
	if !data.CanEdit {
		return nil
	}
	targets := []struct {
		to    lifecycle.Status
		label string
	}{
		{lifecycle.StatusSubmitted, "Submit"},
		{lifecycle.StatusFullyReceived, "Mark fully received"},
		{lifecycle.StatusDraft, "Restore to draft"},
		{lifecycle.StatusDeleted, "Delete"},
		{lifecycle.StatusVoid, "Void"},
	}
	if _, err := io.WriteString(w, "<section><h2>Actions</h2>"); err != nil {
		return err
	}
	for _, t := range targets {
		if !lifecycle.CanTransition(data.Status, t.to) {
			continue
		}
		if _, err := fmt.Fprintf(w,
			"<form method=\"POST\" action=\"/desk/api/documents/%d/status\" style=\"display:inline-block;margin-right:0.5rem\"><input type=\"hidden\" name=\"to\" value=\"%s\"><button type=\"submit\">%s</button></form>",
			data.DocumentID, t.to, esc(t.label)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "<a class=\"btn\" style=\"margin-left:0.5rem\" href=\"/desk/exports/document/%d.csv\">CSV</a> <a class=\"btn\" href=\"/desk/exports/document-pdf/%d.pdf\">PDF</a>", data.DocumentID, data.DocumentID); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</section>")
	return err
}
