package costcenters

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	sessioncontext "costdesk/frontend/shared/context"
	"costdesk/infrastructure/audit"
	"costdesk/infrastructure/sqlite"
)

func ImportPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessioncontext.GetSessionFromContext(r.Context())
		message := r.URL.Query().Get("status")
		if message == "" {
			message = "Upload CSV with header: code,name[,kind]"
		}
		records, err := ListCostCenters(r.Context(), db)
		if err != nil {
			http.Error(w, "failed to load cost centers", http.StatusInternalServerError)
			return
		}

		data := PageData{Message: message, Records: records}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ImportPage(data, session).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render cost center page", http.StatusInternalServerError)
			return
		}
	}
}

func ImportCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessioncontext.GetSessionFromContext(r.Context())
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Redirect(w, r, "/desk/costcenters/import?status="+url.QueryEscape("Error: invalid upload"), http.StatusSeeOther)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Redirect(w, r, "/desk/costcenters/import?status="+url.QueryEscape("Error: file is required"), http.StatusSeeOther)
			return
		}
		defer file.Close()

		summary, err := ImportCSV(r.Context(), db, auditSvc, session.UserID, file)
		if err != nil {
			http.Redirect(w, r, "/desk/costcenters/import?status="+url.QueryEscape("Error: "+err.Error()), http.StatusSeeOther)
			return
		}

		status := fmt.Sprintf("Imported: %d inserted, %d updated, %d errors", summary.Inserted, summary.Updated, summary.Errors)
		http.Redirect(w, r, "/desk/costcenters/import?status="+url.QueryEscape(status), http.StatusSeeOther)
	}
}

func DeactivateCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Redirect(w, r, "/desk/costcenters/import?status="+url.QueryEscape("Invalid cost center id"), http.StatusSeeOther)
			return
		}
		session, _ := sessioncontext.GetSessionFromContext(r.Context())
		if err := Deactivate(r.Context(), db, auditSvc, session.UserID, id); err != nil {
			http.Redirect(w, r, "/desk/costcenters/import?status="+url.QueryEscape("Error: "+err.Error()), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/desk/costcenters/import?status="+url.QueryEscape("Cost center deactivated"), http.StatusSeeOther)
	}
}
