package help

import (
	"context"
	"io"

	sharedhtml "costdesk/frontend/shared/html"
	"costdesk/frontend/shared/nav"
	"costdesk/models"

	"github.com/a-h/templ"
)

func HelpPage(data PageData, session models.Session) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		sections := []string{
			"<h1>Help</h1>",
			"<h2>Documents</h2>",
			"<p>Create purchase orders, job cost sheets and delivery receipts from the Documents page. " +
				"Edits save automatically a moment after you stop typing; the save indicator at the top of the " +
				"editor shows when your changes are stored. Leave the unit cost blank when a price is not yet " +
				"agreed and it will show as TBC until confirmed.</p>",
			"<h2>Statuses</h2>",
			"<p>Draft documents are fully editable. Submitting locks the commercial fields and posts the " +
				"document to the ledger. Receiving quantities against a submitted order moves it to partially " +
				"or fully received on its own. Only notes stay editable once a document is fully received.</p>",
			"<h2>Allocations</h2>",
			"<p>Received quantity on each line can be split across cost centers. The split must add up to " +
				"exactly the received amount; anything you have not assigned yet sits in the HOLD holding " +
				"center until you move it.</p>",
		}
		if data.IsBuyer || data.IsAdmin {
			sections = append(sections,
				"<h2>Exports</h2>",
				"<p>The Exports page downloads any document as CSV or as a PDF with a scannable barcode, "+
					"plus a status summary across all documents.</p>")
		}
		if data.IsAdmin {
			sections = append(sections,
				"<h2>Administration</h2>",
				"<p>Admins manage user accounts, import cost centers from CSV and tune autosave timing "+
					"per document type under Settings.</p>")
		}
		if data.IsViewer {
			sections = append(sections,
				"<h2>Viewing</h2>",
				"<p>Viewer accounts can open any document read-only but cannot change it.</p>")
		}
		for _, s := range sections {
			if _, err := io.WriteString(w, s); err != nil {
				return err
			}
		}
		return nil
	})
	return sharedhtml.Layout("CostDesk - Help", nav.BuildTopNavData(session), body)
}
