package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/popis/internal/auth"
	"github.com/erazemk/popis/internal/ledger"
	"github.com/erazemk/popis/internal/metrics"
	"github.com/erazemk/popis/internal/policy"
)

// Options configures the router.
type Options struct {
	JWTSecret            string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	AllowRegistration    bool
	StockPrefix          string
	ProtectNonZeroDelete bool
	CORSOrigins          []string

	// Metrics, when set, records requests and is served on /metrics.
	Metrics *metrics.Metrics
}

// adminWrites lets every role read and only admins write.
func adminWrites(a *policy.Actor, act policy.Action, t *policy.Target) bool {
	return act == policy.Read || policy.AdminOrSuperAdmin(a, act, t)
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, opts Options) http.Handler {
	mux := http.NewServeMux()

	issuer := auth.NewIssuer(opts.JWTSecret, opts.AccessTTL, opts.RefreshTTL)
	ledgerSvc := &ledger.Service{
		DB:                   db,
		StockPrefix:          opts.StockPrefix,
		ProtectNonZeroDelete: opts.ProtectNonZeroDelete,
		Metrics:              opts.Metrics,
	}

	authHandler := &AuthHandler{DB: db, Issuer: issuer, Metrics: opts.Metrics, AllowRegistration: opts.AllowRegistration}
	usersHandler := &UsersHandler{DB: db}
	orgsHandler := &OrganizationsHandler{DB: db}
	officesHandler := &OfficesHandler{DB: db}
	registryHandler := &RegistryHandler{DB: db, Ledger: ledgerSvc, StockPrefix: opts.StockPrefix}
	inventoryHandler := &InventoryHandler{Ledger: ledgerSvc}

	authMW := AuthMiddleware(issuer, db)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	guarded := func(p policy.Predicate, h http.HandlerFunc) http.Handler {
		return authMW(Require(p)(h))
	}
	admin := policy.AdminOrSuperAdmin

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)

	// Self-service.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("PUT /api/auth/me/image", authed(authHandler.UploadImage))
	mux.Handle("GET /api/users/{id}/image", authed(authHandler.GetImage))

	// Users (admin only).
	mux.Handle("GET /api/users", guarded(admin, usersHandler.List))
	mux.Handle("POST /api/users", guarded(admin, usersHandler.Create))
	mux.Handle("GET /api/users/{id}", guarded(admin, usersHandler.Get))
	mux.Handle("PUT /api/users/{id}/role", guarded(admin, usersHandler.UpdateRole))
	mux.Handle("PUT /api/users/{id}/password", guarded(admin, usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", guarded(admin, usersHandler.Delete))
	mux.Handle("GET /api/users/{id}/offices", guarded(admin, usersHandler.Offices))
	mux.Handle("POST /api/users/{id}/offices", guarded(admin, usersHandler.AddOffices))
	mux.Handle("PUT /api/users/{id}/offices", guarded(admin, usersHandler.ReplaceOffices))
	mux.Handle("DELETE /api/users/{id}/offices", guarded(admin, usersHandler.RemoveOffices))

	// Organizations: read (all roles), create (super admin).
	mux.Handle("GET /api/organizations", authed(orgsHandler.List))
	mux.Handle("POST /api/organizations", guarded(policy.SuperAdminOnly, orgsHandler.Create))

	// Offices: read (all roles), write (admin+).
	mux.Handle("GET /api/offices", guarded(adminWrites, officesHandler.List))
	mux.Handle("POST /api/offices", guarded(adminWrites, officesHandler.Create))
	mux.Handle("GET /api/offices/{id}", guarded(adminWrites, officesHandler.Get))
	mux.Handle("PUT /api/offices/{id}", guarded(adminWrites, officesHandler.Update))
	mux.Handle("DELETE /api/offices/{id}", guarded(adminWrites, officesHandler.Delete))

	// Registry: read (all roles), write (admin+).
	mux.Handle("GET /api/registry", guarded(adminWrites, registryHandler.List))
	mux.Handle("POST /api/registry", guarded(adminWrites, registryHandler.Create))
	mux.Handle("GET /api/registry/template", guarded(admin, registryHandler.Template))
	mux.Handle("GET /api/registry/download", guarded(adminWrites, registryHandler.Download))
	mux.Handle("POST /api/registry/import", guarded(admin, registryHandler.Import))
	mux.Handle("GET /api/registry/{stock_id}", guarded(adminWrites, registryHandler.Get))
	mux.Handle("PUT /api/registry/{stock_id}", guarded(adminWrites, registryHandler.Update))
	mux.Handle("DELETE /api/registry/{stock_id}", guarded(adminWrites, registryHandler.Delete))

	// Inventory: scoped to assigned offices for staff.
	scoped := policy.OfficeScopedStaffReadOnly
	mux.Handle("GET /api/inventory", guarded(scoped, inventoryHandler.List))
	mux.Handle("POST /api/inventory", guarded(scoped, inventoryHandler.Create))
	mux.Handle("GET /api/inventory/export", guarded(scoped, inventoryHandler.Export))
	mux.Handle("GET /api/inventory/broadsheet", guarded(admin, inventoryHandler.Broadsheet))
	mux.Handle("GET /api/inventory/template/{office_id}", guarded(scoped, inventoryHandler.Template))
	mux.Handle("POST /api/inventory/import", guarded(scoped, inventoryHandler.Import))
	mux.Handle("GET /api/inventory/{id}", guarded(scoped, inventoryHandler.Get))
	mux.Handle("PUT /api/inventory/{id}", guarded(scoped, inventoryHandler.Update))
	mux.Handle("DELETE /api/inventory/{id}", guarded(scoped, inventoryHandler.Delete))

	return LoggingMiddleware(opts.Metrics)(CORSMiddleware(opts.CORSOrigins)(mux))
}
