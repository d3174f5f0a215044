package http

import (
	"net/http"

	adminusers "costdesk/frontend/adminUsers"
	"costdesk/frontend/costcenters"
	"costdesk/frontend/documents"
	exportspage "costdesk/frontend/exports"
	"costdesk/frontend/help"
	"costdesk/frontend/login"
	"costdesk/frontend/settings"
	"costdesk/infrastructure/rbac"

	"github.com/go-chi/chi/v5"
)

// RegisterLoginRoutes registers login/logout routes.
func (s *Server) RegisterLoginRoutes() {
	s.router.Get("/login", login.GetLoginScreenHandler)
	s.router.Post("/login", login.CreateLoginHandler(s.DB, s.SessionCache, s.UserCache))
	s.router.Post("/logout", login.LogoutHandler(s.DB, s.SessionCache))
}

// RegisterAdminRoutes registers admin-only routes.
func (s *Server) RegisterAdminRoutes(r chi.Router) chi.Router {
	s.Rbac.Add(rbac.RoleAdmin, "ADMIN_USERS_LIST_VIEW", http.MethodGet, "/desk/admin/users")
	r.Get("/admin/users", adminusers.UsersPageQueryHandler(s.DB, s.UserCache))
	s.Rbac.Add(rbac.RoleAdmin, "ADMIN_USERS_CREATE", http.MethodPost, "/desk/admin/users")
	r.Post("/admin/users", adminusers.CreateUserCommandHandler(s.DB, s.UserCache))
	return r
}

// RegisterFrontendRoutes registers authenticated routes.
func (s *Server) RegisterFrontendRoutes(r chi.Router) chi.Router {
	s.RegisterDocumentRoutes(r)
	s.RegisterCostCenterRoutes(r)
	s.RegisterExportRoutes(r)

	s.Rbac.Add(rbac.RoleAdmin, "SETTINGS_AUTOSAVE_VIEW", http.MethodGet, "/desk/settings/autosave")
	r.Get("/settings/autosave", settings.AutosaveSettingsPageHandler(s.DB))
	s.Rbac.Add(rbac.RoleAdmin, "SETTINGS_AUTOSAVE_EDIT", http.MethodPost, "/desk/settings/autosave")
	r.Post("/settings/autosave", settings.AutosaveSettingsUpdateHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "HELP_VIEW", http.MethodGet, "/desk/help")
	s.Rbac.Add(rbac.RoleBuyer, "HELP_VIEW", http.MethodGet, "/desk/help")
	s.Rbac.Add(rbac.RoleViewer, "HELP_VIEW", http.MethodGet, "/desk/help")
	r.Get("/help", help.HelpPageQueryHandler())

	return r
}

func (s *Server) RegisterDocumentRoutes(r chi.Router) {
	s.Rbac.Add(rbac.RoleAdmin, "DOCUMENTS_LIST_VIEW", http.MethodGet, "/desk/documents")
	s.Rbac.Add(rbac.RoleBuyer, "DOCUMENTS_LIST_VIEW", http.MethodGet, "/desk/documents")
	s.Rbac.Add(rbac.RoleViewer, "DOCUMENTS_LIST_VIEW", http.MethodGet, "/desk/documents")
	r.Get("/documents", documents.DocumentsPageQueryHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "DOCUMENTS_CREATE", http.MethodPost, "/desk/documents")
	s.Rbac.Add(rbac.RoleBuyer, "DOCUMENTS_CREATE", http.MethodPost, "/desk/documents")
	r.Post("/documents", documents.CreateDocumentCommandHandler(s.DB, s.SessionCache, s.Audit))

	s.Rbac.Add(rbac.RoleAdmin, "DOCUMENT_EDITOR_VIEW", http.MethodGet, "/desk/documents/*")
	s.Rbac.Add(rbac.RoleBuyer, "DOCUMENT_EDITOR_VIEW", http.MethodGet, "/desk/documents/*")
	s.Rbac.Add(rbac.RoleViewer, "DOCUMENT_EDITOR_VIEW", http.MethodGet, "/desk/documents/*")
	r.Get("/documents/{id}", documents.DocumentEditorPageQueryHandler(s.DB, s.Editors, s.Audit))

	s.Rbac.Add(rbac.RoleAdmin, "DOCUMENT_EDIT", http.MethodPost, "/desk/api/documents/*/edit")
	s.Rbac.Add(rbac.RoleBuyer, "DOCUMENT_EDIT", http.MethodPost, "/desk/api/documents/*/edit")
	r.Post("/api/documents/{id}/edit", documents.EditCommandHandler(s.Editors))

	s.Rbac.Add(rbac.RoleAdmin, "DOCUMENT_ROW_ADD", http.MethodPost, "/desk/api/documents/*/rows")
	s.Rbac.Add(rbac.RoleBuyer, "DOCUMENT_ROW_ADD", http.MethodPost, "/desk/api/documents/*/rows")
	r.Post("/api/documents/{id}/rows", documents.AddRowCommandHandler(s.Editors))

	s.Rbac.Add(rbac.RoleAdmin, "DOCUMENT_ROW_DELETE", http.MethodPost, "/desk/api/documents/*/rows/*/delete")
	s.Rbac.Add(rbac.RoleBuyer, "DOCUMENT_ROW_DELETE", http.MethodPost, "/desk/api/documents/*/rows/*/delete")
	r.Post("/api/documents/{id}/rows/{key}/delete", documents.DeleteRowCommandHandler(s.Editors))

	s.Rbac.Add(rbac.RoleAdmin, "DOCUMENT_FLUSH", http.MethodPost, "/desk/api/documents/*/flush")
	s.Rbac.Add(rbac.RoleBuyer, "DOCUMENT_FLUSH", http.MethodPost, "/desk/api/documents/*/flush")
	r.Post("/api/documents/{id}/flush", documents.FlushCommandHandler(s.Editors))

	s.Rbac.Add(rbac.RoleAdmin, "DOCUMENT_STATUS_EDIT", http.MethodPost, "/desk/api/documents/*/status")
	s.Rbac.Add(rbac.RoleBuyer, "DOCUMENT_STATUS_EDIT", http.MethodPost, "/desk/api/documents/*/status")
	r.Post("/api/documents/{id}/status", documents.StatusTransitionCommandHandler(s.DB, s.Editors, s.Ledger, s.Audit))

	s.Rbac.Add(rbac.RoleAdmin, "ALLOCATION_SPLIT_VIEW", http.MethodGet, "/desk/api/documents/*/lines/*/allocations")
	s.Rbac.Add(rbac.RoleBuyer, "ALLOCATION_SPLIT_VIEW", http.MethodGet, "/desk/api/documents/*/lines/*/allocations")
	r.Get("/api/documents/{id}/lines/{lineID}/allocations", documents.AllocationEditorQueryHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "ALLOCATION_SPLIT_SAVE", http.MethodPost, "/desk/api/documents/*/lines/*/allocations")
	s.Rbac.Add(rbac.RoleBuyer, "ALLOCATION_SPLIT_SAVE", http.MethodPost, "/desk/api/documents/*/lines/*/allocations")
	r.Post("/api/documents/{id}/lines/{lineID}/allocations", documents.SaveAllocationCommandHandler(s.DB, s.Audit))
}

func (s *Server) RegisterCostCenterRoutes(r chi.Router) {
	s.Rbac.Add(rbac.RoleAdmin, "COSTCENTERS_IMPORT_VIEW", http.MethodGet, "/desk/costcenters/import")
	r.Get("/costcenters/import", costcenters.ImportPageQueryHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "COSTCENTERS_IMPORT", http.MethodPost, "/desk/costcenters/import")
	r.Post("/costcenters/import", costcenters.ImportCommandHandler(s.DB, s.Audit))

	s.Rbac.Add(rbac.RoleAdmin, "COSTCENTERS_DEACTIVATE", http.MethodPost, "/desk/costcenters/deactivate/*")
	r.Post("/costcenters/deactivate/{id}", costcenters.DeactivateCommandHandler(s.DB, s.Audit))
}

func (s *Server) RegisterExportRoutes(r chi.Router) {
	s.Rbac.Add(rbac.RoleAdmin, "EXPORTS_VIEW", http.MethodGet, "/desk/exports")
	s.Rbac.Add(rbac.RoleBuyer, "EXPORTS_VIEW", http.MethodGet, "/desk/exports")
	r.Get("/exports", exportspage.ExportsPageQueryHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "EXPORT_DOCUMENT_CSV", http.MethodGet, "/desk/exports/document/*")
	s.Rbac.Add(rbac.RoleBuyer, "EXPORT_DOCUMENT_CSV", http.MethodGet, "/desk/exports/document/*")
	r.Get("/exports/document/{id}.csv", exportspage.DocumentExportCSVHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "EXPORT_DOCUMENT_PDF", http.MethodGet, "/desk/exports/document-pdf/*")
	s.Rbac.Add(rbac.RoleBuyer, "EXPORT_DOCUMENT_PDF", http.MethodGet, "/desk/exports/document-pdf/*")
	r.Get("/exports/document-pdf/{id}.pdf", exportspage.DocumentExportPDFHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "EXPORT_STATUS", http.MethodGet, "/desk/exports/document-status.csv")
	r.Get("/exports/document-status.csv", exportspage.DocumentStatusCSVHandler(s.DB))
}
