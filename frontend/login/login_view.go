package login

import (
	"context"
	"fmt"
	"html"
	"io"

	sharedhtml "costdesk/frontend/shared/html"

	"github.com/a-h/templ"
)

// GetLoginScreen renders the standalone login page.
func GetLoginScreen(errorMessage string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>CostDesk - Sign in</title><link rel=\"stylesheet\" href=\"/assets/app.css\"></head><body><main style=\"max-width:22rem\"><h1>CostDesk</h1>"); err != nil {
			return err
		}
		if errorMessage != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash error\">%s</div>", html.EscapeString(errorMessage)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<form method="POST" action="/login">
<p><label>Username<br><input type="text" name="username" autocomplete="username" autofocus required></label></p>
<p><label>Password<br><input type="password" name="password" autocomplete="current-password" required></label></p>
<p><button type="submit">Sign in</button></p>
</form></main>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, sharedhtml.CSRFFormScript()); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}
