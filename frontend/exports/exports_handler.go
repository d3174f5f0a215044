package exports

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	sessioncontext "costdesk/frontend/shared/context"
	"costdesk/infrastructure/audit"
	"costdesk/infrastructure/sqlite"
)

func ExportsPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		options, err := listExportDocuments(r.Context(), db)
		if err != nil {
			http.Error(w, "failed to load documents", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ExportsPage(PageData{Documents: options}, session).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render exports page", http.StatusInternalServerError)
			return
		}
	}
}

func DocumentExportCSVHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || docID <= 0 {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		header, err := loadDocumentHeader(r.Context(), db, docID)
		if err != nil {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+header.DocNumber+".csv")
		if err := writeDocumentCSV(r.Context(), db, w, docID); err != nil {
			http.Error(w, "failed to export csv", http.StatusInternalServerError)
			return
		}
		recordExportRun(r, db, "document_csv", header.DocNumber)
	}
}

func DocumentExportPDFHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || docID <= 0 {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		header, err := loadDocumentHeader(r.Context(), db, docID)
		if err != nil {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		lines, err := loadDocumentLines(r.Context(), db, docID)
		if err != nil {
			http.Error(w, "failed to load document lines", http.StatusInternalServerError)
			return
		}
		pdfBytes, err := renderDocumentPDF(header, lines, time.Now())
		if err != nil {
			http.Error(w, "failed to render pdf", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename="+header.DocNumber+".pdf")
		if _, err := w.Write(pdfBytes); err != nil {
			slog.Error("write pdf response failed", slog.String("doc", header.DocNumber), slog.Any("err", err))
			return
		}
		recordExportRun(r, db, "document_pdf", header.DocNumber)
	}
}

func DocumentStatusCSVHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=document-status.csv")
		if err := writeDocumentStatusCSV(r.Context(), db, w); err != nil {
			http.Error(w, "failed to export status csv", http.StatusInternalServerError)
			return
		}
		recordExportRun(r, db, "status_csv", "all")
	}
}

// Export downloads are audited so finance can see who pulled what.
func recordExportRun(r *http.Request, db *sqlite.DB, exportType, entityID string) {
	session, ok := sessioncontext.GetSessionFromContext(r.Context())
	if !ok || session.UserID <= 0 {
		return
	}
	svc := audit.NewService()
	err := db.WithWriteTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
		return svc.Write(ctx, tx, session.UserID, "document.export", "export", entityID,
			nil, map[string]string{"type": exportType})
	})
	if err != nil {
		slog.Error("record export run failed", slog.String("type", exportType), slog.Any("err", err))
	}
}
