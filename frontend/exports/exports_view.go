package exports

import (
	"context"
	"fmt"
	"html"
	"io"

	sharedhtml "costdesk/frontend/shared/html"
	"costdesk/frontend/shared/nav"
	"costdesk/models"

	"github.com/a-h/templ"
)

func ExportsPage(data PageData, session models.Session) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Exports</h1>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<p><a href=\"/desk/exports/document-status.csv\">Download document status CSV</a></p>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<table class=\"grid\"><thead><tr><th>Number</th><th>Type</th><th>Supplier</th><th>Status</th><th class=\"numeric\">Lines</th><th>Download</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, doc := range data.Documents {
			if _, err := fmt.Fprintf(w,
				"<tr><td>%s</td><td>%s</td><td>%s</td><td><span class=\"status-chip %s\">%s</span></td><td class=\"numeric\">%d</td><td><a href=\"/desk/exports/document/%d.csv\">CSV</a> | <a href=\"/desk/exports/document-pdf/%d.pdf\">PDF</a></td></tr>",
				html.EscapeString(doc.DocNumber), html.EscapeString(doc.TypeLabel()), html.EscapeString(doc.Supplier),
				html.EscapeString(doc.Status), html.EscapeString(doc.Status), doc.LineCount, doc.ID, doc.ID); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table>")
		return err
	})
	return sharedhtml.Layout("CostDesk - Exports", nav.BuildTopNavData(session), body)
}
