package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/erazemk/popis/internal/ledger"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// RegistryHandler handles the item registry, keyed by stock ID.
type RegistryHandler struct {
	DB          *sql.DB
	Ledger      *ledger.Service
	StockPrefix string
}

type registryRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// List handles GET /api/registry.
func (h *RegistryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := store.ListRegistry(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}

// lookup loads the entry named by the stock_id path value.
func (h *RegistryHandler) lookup(r *http.Request) (*model.RegistryEntry, error) {
	entry, err := store.GetRegistryEntryByStockID(r.Context(), h.DB, r.PathValue("stock_id"))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, notFound("registry entry")
	}
	return entry, nil
}

// Get handles GET /api/registry/{stock_id}.
func (h *RegistryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}

// Create handles POST /api/registry. The stock ID is generated.
func (h *RegistryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req registryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := model.ValidateRegistryEntry(req.Name, req.UnitCost); err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := store.CreateRegistryEntry(r.Context(), h.DB, h.StockPrefix, req.Name, req.Description, req.UnitCost)
	if err != nil {
		writeError(w, r, conflict(err, "an item with this name already exists"))
		return
	}

	slog.Info("registry entry created", "user", GetUser(r.Context()).Username, "stock_id", entry.StockID, "name", entry.Name)
	jsonResponse(w, http.StatusCreated, entry)
}

// Update handles PUT /api/registry/{stock_id}. The stock ID never changes.
func (h *RegistryHandler) Update(w http.ResponseWriter, r *http.Request) {
	entry, err := h.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req registryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := model.ValidateRegistryEntry(req.Name, req.UnitCost); err != nil {
		writeError(w, r, err)
		return
	}

	err = store.UpdateRegistryEntry(r.Context(), h.DB, entry.ID, req.Name, req.Description, req.UnitCost)
	if err != nil {
		writeError(w, r, conflict(err, "an item with this name already exists"))
		return
	}

	updated, err := store.GetRegistryEntry(r.Context(), h.DB, entry.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("registry entry updated", "user", GetUser(r.Context()).Username, "stock_id", entry.StockID)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/registry/{stock_id}. Entries with inventory
// records are refused.
func (h *RegistryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry, err := h.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteRegistryEntry(r.Context(), h.DB, entry.ID); err != nil {
		writeError(w, r, conflict(err, "item is still used by inventory records"))
		return
	}

	slog.Info("registry entry deleted", "user", GetUser(r.Context()).Username, "stock_id", entry.StockID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "registry entry deleted"})
}

// Template handles GET /api/registry/template.
func (h *RegistryHandler) Template(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())
	wb, err := h.Ledger.RegistryTemplate(r.Context(), GetActor(r.Context()), user.DisplayOrganization())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, wb)
}

// Download handles GET /api/registry/download.
func (h *RegistryHandler) Download(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())
	wb, err := h.Ledger.RegistryDownload(r.Context(), GetActor(r.Context()), user.DisplayOrganization())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, wb)
}

// Import handles POST /api/registry/import with a multipart "file".
func (h *RegistryHandler) Import(w http.ResponseWriter, r *http.Request) {
	file, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.Ledger.ImportRegistry(r.Context(), GetActor(r.Context()), file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("registry imported", "user", GetUser(r.Context()).Username,
		"created", result.Created, "updated", result.Updated)
	jsonResponse(w, http.StatusOK, result)
}
