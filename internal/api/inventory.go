package api

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/erazemk/popis/internal/exchange"
	"github.com/erazemk/popis/internal/ledger"
)

// maxUpload bounds spreadsheet uploads.
const maxUpload = 10 << 20

// InventoryHandler handles inventory ledger endpoints.
type InventoryHandler struct {
	Ledger *ledger.Service
}

// List handles GET /api/inventory?office_id=&year=&page=&page_size=.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	officeID, year, err := officeAndYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.Ledger.ListPage(r.Context(), GetActor(r.Context()), officeID, year, int(page), int(pageSize))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Get handles GET /api/inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid inventory id")
		return
	}

	record, err := h.Ledger.Get(r.Context(), GetActor(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, record)
}

// Create handles POST /api/inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ledger.CreateInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.Ledger.Create(r.Context(), GetActor(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("inventory recorded", "user", GetUser(r.Context()).Username, "office", record.OfficeName,
		"stock_id", record.StockID, "quantity", record.Quantity, "year", record.Year)
	jsonResponse(w, http.StatusCreated, record)
}

// Update handles PUT /api/inventory/{id}.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid inventory id")
		return
	}

	var req ledger.Patch
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.Ledger.Update(r.Context(), GetActor(r.Context()), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("inventory updated", "user", GetUser(r.Context()).Username, "inventory_id", id,
		"quantity", record.Quantity)
	jsonResponse(w, http.StatusOK, record)
}

// Delete handles DELETE /api/inventory/{id}.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid inventory id")
		return
	}

	record, err := h.Ledger.Delete(r.Context(), GetActor(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("inventory deleted", "user", GetUser(r.Context()).Username, "office", record.OfficeName,
		"stock_id", record.StockID, "quantity", record.Quantity)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "inventory record deleted"})
}

// Template handles GET /api/inventory/template/{office_id}.
func (h *InventoryHandler) Template(w http.ResponseWriter, r *http.Request) {
	officeID, ok := pathID(r, "office_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	user := GetUser(r.Context())
	wb, err := h.Ledger.InventoryTemplate(r.Context(), GetActor(r.Context()), user.DisplayOrganization(), officeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, wb)
}

// Import handles POST /api/inventory/import?office_id=&year= with a
// multipart "file".
func (h *InventoryHandler) Import(w http.ResponseWriter, r *http.Request) {
	officeID, year, err := officeAndYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if officeID == 0 {
		jsonError(w, http.StatusBadRequest, "office_id required")
		return
	}

	file, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.Ledger.Import(r.Context(), GetActor(r.Context()), officeID, year, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("inventory imported", "user", GetUser(r.Context()).Username, "office_id", officeID,
		"created", result.Created, "updated", result.Updated)
	jsonResponse(w, http.StatusOK, result)
}

// Export handles GET /api/inventory/export?office_id=&year=.
func (h *InventoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	officeID, year, err := officeAndYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := GetUser(r.Context())
	wb, err := h.Ledger.Export(r.Context(), GetActor(r.Context()), user.DisplayOrganization(), officeID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, wb)
}

// Broadsheet handles GET /api/inventory/broadsheet?year=.
func (h *InventoryHandler) Broadsheet(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := GetUser(r.Context())
	wb, err := h.Ledger.Broadsheet(r.Context(), GetActor(r.Context()), user.DisplayOrganization(), int(year))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeWorkbook(w, wb)
}

func officeAndYear(r *http.Request) (officeID int64, year int, err error) {
	if officeID, err = queryInt(r, "office_id"); err != nil {
		return 0, 0, err
	}
	y, err := queryInt(r, "year")
	if err != nil {
		return 0, 0, err
	}
	return officeID, int(y), nil
}

// uploadedFile returns the multipart "file" field, writing a 400 when it
// is missing or the body is too large.
func uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "file required")
		return nil, false
	}
	return file, true
}

// writeWorkbook sends a generated workbook as an attachment.
func writeWorkbook(w http.ResponseWriter, wb *ledger.Workbook) {
	w.Header().Set("Content-Type", exchange.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", wb.Filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(wb.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(wb.Data); err != nil {
		slog.Warn("failed to send workbook", "file", wb.Filename, "error", err)
	}
}
