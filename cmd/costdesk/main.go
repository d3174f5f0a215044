package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"costdesk/frontend/documents"
	"costdesk/frontend/settings"
	"costdesk/infrastructure/audit"
	"costdesk/infrastructure/cache"
	httpserver "costdesk/infrastructure/http"
	"costdesk/infrastructure/ledger"
	"costdesk/infrastructure/rbac"
	"costdesk/infrastructure/sqlite"
)

func main() {
	addr := getenv("APP_ADDR", ":8080")
	dbPath := getenv("SQLITE_PATH", "costdesk.db")

	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := sqlite.ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	sessionCache := cache.NewUserSessionCache()
	userCache := cache.NewUserCache()
	rbacCache := cache.NewRbacRolesCache()
	rbacSvc := rbac.New(rbacCache)
	auditSvc := audit.NewService()

	editors := documents.NewEditorRegistry()
	editors.QuietFor = settings.QuietIntervalResolver(db)

	server := httpserver.NewServer(addr, db, sessionCache, userCache, rbacSvc, rbacCache, auditSvc, editors, ledger.NewLocalPoster())
	if err := server.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}
	log.Printf("costdesk listening on %s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Stop(); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
