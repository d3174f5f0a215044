package settings

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	sessioncontext "costdesk/frontend/shared/context"
	"costdesk/infrastructure/sqlite"
)

func AutosaveSettingsPageHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		overrides, err := LoadQuietIntervals(r.Context(), db)
		if err != nil {
			http.Error(w, "failed to load settings", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := AutosaveSettingsPage(r.URL.Query().Get("status"), overrides, session).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render settings page", http.StatusInternalServerError)
			return
		}
	}
}

func AutosaveSettingsUpdateHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/desk/settings/autosave?status=invalid+form", http.StatusSeeOther)
			return
		}
		docType := strings.TrimSpace(r.FormValue("doc_type"))
		quietMs, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("quiet_ms")), 10, 64)
		if err != nil {
			http.Redirect(w, r, "/desk/settings/autosave?status=invalid+interval", http.StatusSeeOther)
			return
		}
		if err := SaveQuietInterval(r.Context(), db, docType, quietMs); err != nil {
			http.Redirect(w, r, "/desk/settings/autosave?status="+url.QueryEscape(err.Error()), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/desk/settings/autosave?status=saved", http.StatusSeeOther)
	}
}
