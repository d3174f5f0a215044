package adminusers

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

func UsersListPage(data PageData, session models.Session) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Users</h1>"); err != nil {
			return err
		}
		if data.ErrorMessage != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash error\">%s</div>", html.EscapeString(data.ErrorMessage)); err != nil {
				return err
			}
		}
		if data.Status != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash\">%s</div>", html.EscapeString(data.Status)); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, `<form method="POST" action="/desk/admin/users" class="stack" style="margin-bottom:1rem">`+
			`<input type="text" name="username" placeholder="Username" required> `+
			`<input type="password" name="password" placeholder="Password" required> `+
			`<select name="role"><option value="buyer">Buyer</option><option value="viewer">Viewer</option><option value="admin">Admin</option></select> `+
			`<button type="submit">Create user</button></form>`); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<table class=\"grid\"><thead><tr><th>ID</th><th>Username</th><th>Role</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, u := range data.Users {
			if _, err := fmt.Fprintf(w, "<tr><td>%d</td><td>%s</td><td>%s</td></tr>",
				u.ID, html.EscapeString(u.Username), html.EscapeString(u.Role)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table>")
		return err
	})
	return sharedhtml.Layout("CostDesk - Users", nav.BuildTopNavData(session), body)
}
