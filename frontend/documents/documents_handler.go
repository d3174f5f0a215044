package documents

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"costdesk/engine/allocation"
	"costdesk/engine/lifecycle"
	"costdesk/frontend/shared/context"
	"costdesk/infrastructure/audit"
	"costdesk/infrastructure/cache"
	"costdesk/infrastructure/ledger"
	"costdesk/infrastructure/sqlite"
)

func parseDocumentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DocumentsPageQueryHandler renders the documents index.
func DocumentsPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	store := NewStore(db, nil)
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := context.GetSessionFromContext(r.Context())
		items, err := store.ListDocuments(r.Context())
		if err != nil {
			http.Error(w, "failed to load documents", http.StatusInternalServerError)
			return
		}
		data := PageData{
			Items:     items,
			CanCreate: session.User.Role != "viewer",
			Message:   strings.TrimSpace(r.URL.Query().Get("error")),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := DocumentsPage(data, session).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render documents page", http.StatusInternalServerError)
		}
	}
}

// CreateDocumentCommandHandler creates a fresh draft and opens its editor.
func CreateDocumentCommandHandler(db *sqlite.DB, _ *cache.UserSessionCache, auditSvc *audit.Service) http.HandlerFunc {
	store := NewStore(db, auditSvc)
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := context.GetSessionFromContext(r.Context())
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/desk/documents?error="+url.QueryEscape("invalid form"), http.StatusSeeOther)
			return
		}
		docType := strings.TrimSpace(r.FormValue("doc_type"))
		if !KnownDocType(docType) {
			http.Redirect(w, r, "/desk/documents?error="+url.QueryEscape("choose a document type"), http.StatusSeeOther)
			return
		}
		doc, err := store.CreateDocument(r.Context(), session.UserID, docType)
		if err != nil {
			http.Redirect(w, r, "/desk/documents?error="+url.QueryEscape("failed to create document"), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/desk/documents/"+strconv.FormatInt(doc.ID, 10), http.StatusSeeOther)
	}
}

// DocumentEditorPageQueryHandler renders the editor, creating the live
// editing session on first load.
func DocumentEditorPageQueryHandler(db *sqlite.DB, registry *EditorRegistry, auditSvc *audit.Service) http.HandlerFunc {
	store := NewStore(db, auditSvc)
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDocumentID(r)
		if err != nil {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		session, _ := context.GetSessionFromContext(r.Context())

		doc, lines, err := store.LoadDocument(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "document not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load document", http.StatusInternalServerError)
			return
		}

		ccs, err := store.CostCenters(r.Context())
		if err != nil {
			http.Error(w, "failed to load cost centers", http.StatusInternalServerError)
			return
		}

		editor, err := registry.GetOrCreate(id, func() (*Editor, error) {
			codes, err := store.CostCenterCodesByID(r.Context())
			if err != nil {
				return nil, err
			}
			return NewEditor(doc, lines, codes, store.DispatcherFor(session.UserID), registry.QuietFor(doc.DocType)), nil
		})
		if err != nil {
			http.Error(w, "failed to open editor", http.StatusInternalServerError)
			return
		}

		status := editor.Status()
		data := EditorPageData{
			DocumentID:  id,
			DocType:     doc.DocType,
			DocNumber:   doc.DocNumber,
			Status:      status,
			StatusLabel: lifecycle.Label(doc.DocType, status),
			Profile:     lifecycle.EditabilityFor(status),
			Header:      editor.HeaderFields(),
			Sections:    editor.Sections(),
			CostCenters: ccs,
			SaveFailed:  !editor.LastSaveSucceeded(),
			CanEdit:     session.User.Role != "viewer",
			Message:     strings.TrimSpace(r.URL.Query().Get("error")),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := DocumentEditorPage(data, session).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render editor", http.StatusInternalServerError)
		}
	}
}

// EditCommandHandler records one field edit against the live session. A
// blank table means a header field.
func EditCommandHandler(registry *EditorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDocumentID(r)
		if err != nil {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		editor, ok := registry.Get(id)
		if !ok {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "editing session expired; reload the page"})
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		section := strings.TrimSpace(r.FormValue("table"))
		field := strings.TrimSpace(r.FormValue("field"))
		value := r.FormValue("value")

		if section == "" {
			err = editor.SetHeaderField(field, value)
		} else {
			err = editor.EditRow(section, strings.TrimSpace(r.FormValue("key")), field, value)
		}
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, editor.State())
	}
}

// AddRowCommandHandler appends a blank row to a section.
func AddRowCommandHandler(registry *EditorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDocumentID(r)
		if err != nil {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		editor, ok := registry.Get(id)
		if !ok {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "editing session expired; reload the page"})
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		key, err := editor.AddRow(strings.TrimSpace(r.FormValue("table")))
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key})
	}
}

// DeleteRowCommandHandler removes a row from the live session.
func DeleteRowCommandHandler(registry *EditorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDocumentID(r)
		if err != nil {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		editor, ok := registry.Get(id)
		if !ok {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "editing session expired; reload the page"})
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		key := chi.URLParam(r, "key")
		section := strings.TrimSpace(r.FormValue("table"))
		if section == "" {
			// The key prefix names its section.
			if i := strings.LastIndex(key, "-"); i > 0 {
				section = key[:i]
			}
		}
		if err := editor.DeleteRow(section, key); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, editor.State())
	}
}

// FlushCommandHandler saves everything pending immediately.
func FlushCommandHandler(registry *EditorRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDocumentID(r)
		if err != nil {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		editor, ok := registry.Get(id)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]string{"status": "no session"})
			return
		}
		_ = editor.Flush(r.Context())
		writeJSON(w, http.StatusOK, editor.State())
	}
}

// StatusTransitionCommandHandler applies an explicit lifecycle move.
// Pending edits are flushed first; a document whose last save failed
// cannot be submitted.
func StatusTransitionCommandHandler(db *sqlite.DB, registry *EditorRegistry, poster ledger.Poster, auditSvc *audit.Service) http.HandlerFunc {
	store := NewStore(db, auditSvc)
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseDocumentID(r)
		if err != nil {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		session, _ := context.GetSessionFromContext(r.Context())
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		to := lifecycle.Status(strings.TrimSpace(r.FormValue("to")))
		if !lifecycle.Known(to) {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}

		editorPath := "/desk/documents/" + strconv.FormatInt(id, 10)
		if editor, ok := registry.Get(id); ok {
			_ = editor.Flush(r.Context())
			if to == lifecycle.StatusSubmitted && !editor.LastSaveSucceeded() {
				http.Redirect(w, r, editorPath+"?error="+url.QueryEscape("cannot submit: the last save failed; fix the highlighted fields first"), http.StatusSeeOther)
				return
			}
		}

		doc, err := store.TransitionStatus(r.Context(), session.UserID, id, to, poster)
		if err != nil {
			var terr *lifecycle.TransitionError
			if errors.As(err, &terr) {
				http.Redirect(w, r, editorPath+"?error="+url.QueryEscape(terr.Reason), http.StatusSeeOther)
				return
			}
			http.Redirect(w, r, editorPath+"?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
			return
		}

		switch to {
		case lifecycle.StatusDeleted, lifecycle.StatusVoid:
			registry.Remove(id)
			http.Redirect(w, r, "/desk/documents", http.StatusSeeOther)
			return
		default:
			if editor, ok := registry.Get(id); ok {
				editor.ApplyStatus(lifecycle.Status(doc.Status))
			}
			http.Redirect(w, r, editorPath, http.StatusSeeOther)
		}
	}
}

// allocationPayload is the JSON body of the allocation save endpoint.
type allocationPayload struct {
	Entries []struct {
		Target   string  `json:"target"`
		Quantity float64 `json:"quantity"`
	} `json:"entries"`
}

// AllocationEditorQueryHandler returns a line's split state as JSON,
// seeding the default single entry when no split exists yet.
func AllocationEditorQueryHandler(db *sqlite.DB) http.HandlerFunc {
	store := NewStore(db, nil)
	return func(w http.ResponseWriter, r *http.Request) {
		docID, err := parseDocumentID(r)
		if err != nil {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid line id", http.StatusBadRequest)
			return
		}

		entries, received, intended, err := store.LoadAllocation(r.Context(), docID, lineID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "line not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load allocation", http.StatusInternalServerError)
			return
		}

		editor := allocation.EnterSplit(LineRef(lineID), entries, received, intended, HoldingTargetCode)
		writeJSON(w, http.StatusOK, map[string]any{
			"entries":    editor.Entries,
			"received":   received,
			"validation": editor.Validate(received),
		})
	}
}

// SaveAllocationCommandHandler replaces a line's split. An invalid split
// is returned with its problems and nothing is written.
func SaveAllocationCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	store := NewStore(db, auditSvc)
	return func(w http.ResponseWriter, r *http.Request) {
		docID, err := parseDocumentID(r)
		if err != nil {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid line id", http.StatusBadRequest)
			return
		}
		session, _ := context.GetSessionFromContext(r.Context())

		var payload allocationPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		entries := make([]allocation.Entry, 0, len(payload.Entries))
		for _, e := range payload.Entries {
			entries = append(entries, allocation.Entry{LineID: LineRef(lineID), Target: e.Target, Quantity: e.Quantity})
		}

		v, err := store.SaveAllocation(r.Context(), session.UserID, docID, lineID, entries)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "line not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to save allocation", http.StatusInternalServerError)
			return
		}
		if !v.Valid {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"validation": v})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"validation": v})
	}
}
