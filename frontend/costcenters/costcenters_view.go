package costcenters

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

// PageData feeds the cost center import page.
type PageData struct {
	Message string
	Records []CostCenterRecord
}

func ImportPage(data PageData, session models.Session) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Cost Centers</h1>"); err != nil {
			return err
		}
		if data.Message != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash\">%s</div>", html.EscapeString(data.Message)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<form method="POST" action="/desk/costcenters/import" enctype="multipart/form-data" style="margin-bottom:1rem">
<input type="file" name="file" accept=".csv" required>
<button type="submit">Import CSV</button>
</form>`); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<table class=\"grid\"><thead><tr><th>Code</th><th>Name</th><th>Kind</th><th>Active</th><th>Updated</th><th></th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, rec := range data.Records {
			active := "yes"
			if !rec.Active {
				active = "no"
			}
			action := ""
			if rec.Active && rec.Code != holdingCode {
				action = fmt.Sprintf("<form method=\"POST\" action=\"/desk/costcenters/deactivate/%d\"><button class=\"secondary\" type=\"submit\">Deactivate</button></form>", rec.ID)
			}
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(rec.Code), html.EscapeString(rec.Name), html.EscapeString(rec.Kind), active, html.EscapeString(rec.UpdatedAt), action); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table>")
		return err
	})
	return sharedhtml.Layout("CostDesk - Cost Centers", nav.BuildTopNavData(session), body)
}
