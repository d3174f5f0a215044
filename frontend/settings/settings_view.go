package settings

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"

	"costdesk/engine/autosave"
	"costdesk/frontend/documents"
	sharedhtml "costdesk/frontend/shared/html"
	"costdesk/frontend/shared/nav"
	"costdesk/models"
)

func AutosaveSettingsPage(status string, overrides map[string]int64, session models.Session) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Autosave settings</h1>"); err != nil {
			return err
		}
		if status != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash\">%s</div>", html.EscapeString(status)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "<p>How long the editor waits after the last keystroke before saving, per document type.</p>"); err != nil {
			return err
		}
		for _, docType := range documents.DocTypes {
			current := overrides[docType]
			if current == 0 {
				current = autosave.QuietIntervalFor(docType).Milliseconds()
			}
			if _, err := fmt.Fprintf(w,
				`<form method="POST" action="/desk/settings/autosave" style="margin-bottom:0.5rem">`+
					`<input type="hidden" name="doc_type" value="%s">`+
					`<label>%s <input type="number" name="quiet_ms" value="%d" min="200" max="10000" step="100"> ms</label> `+
					`<button type="submit">Save</button></form>`,
				docType, html.EscapeString(documents.TypeLabel(docType)), current); err != nil {
				return err
			}
		}
		return nil
	})
	return sharedhtml.Layout("CostDesk - Settings", nav.BuildTopNavData(session), body)
}
