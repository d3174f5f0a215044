package html

import (
	"context"
	"fmt"
	"html"
	"io"

	"costdesk/frontend/shared/nav"

	"github.com/a-h/templ"
)

// Layout wraps a page body with the document head, top navigation and the
// CSRF form script. Every authenticated page renders through it.
func Layout(title string, navData nav.TopNavData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"><title>%s</title><link rel=\"stylesheet\" href=\"/assets/app.css\"></head><body>", html.EscapeString(title)); err != nil {
			return err
		}
		if err := TopNav(navData).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<main>"); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</main>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, CSRFFormScript()); err != nil {
			return err
		}
		_, err := io.WriteString(w, "<script src=\"/assets/app.js\"></script></body></html>")
		return err
	})
}

// TopNav renders the navigation bar. Links vary by role.
func TopNav(data nav.TopNavData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<header class=\"topbar\"><strong>CostDesk</strong>"); err != nil {
			return err
		}
		links := []struct{ href, label string }{
			{"/desk/documents", "Documents"},
			{"/desk/exports", "Exports"},
		}
		if data.Role == "admin" {
			links = append(links,
				struct{ href, label string }{"/desk/costcenters/import", "Cost Centers"},
				struct{ href, label string }{"/desk/settings/autosave", "Settings"},
				struct{ href, label string }{"/desk/admin/users", "Users"},
			)
		}
		links = append(links, struct{ href, label string }{"/desk/help", "Help"})
		for _, l := range links {
			if _, err := fmt.Fprintf(w, "<a href=\"%s\">%s</a>", l.href, html.EscapeString(l.label)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "<span style=\"margin-left:auto\">%s</span><form method=\"POST\" action=\"/logout\"><button class=\"secondary\" type=\"submit\">Log out</button></form></header>", html.EscapeString(data.Username))
		return err
	})
}

// Raw wraps pre-built markup as a component. Callers are responsible for
// escaping anything user-controlled.
func Raw(markup string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, markup)
		return err
	})
}
