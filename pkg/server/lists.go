package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/netauto/maintcheck/pkg/cases"
	"github.com/netauto/maintcheck/pkg/models"
)

// maxImportSize bounds a CSV upload body.
const maxImportSize = 8 << 20

func entryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid entry id", cases.ErrValidation)
	}
	return id, nil
}

func readImportBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxImportSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", cases.ErrValidation, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", cases.ErrValidation)
	}
	return data, nil
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListDeviceEntries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// handleCreateDevice adds one device entry under the same invariants as the
// bulk import, cross-mapping rejection included.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var e models.DeviceEntry
	if err := s.decodeJSON(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.importer.AddDevice(r.Context(), chi.URLParam(r, "id"), &e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, out)
}

// handleImportDevices runs the two-phase CSV import: either every row lands
// in one commit or the report carries the per-row errors and nothing is
// written.
func (s *Server) handleImportDevices(w http.ResponseWriter, r *http.Request) {
	data, err := readImportBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.importer.ImportDevices(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, report)
}

func (s *Server) handleExportDevices(w http.ResponseWriter, r *http.Request) {
	data, err := s.importer.ExportDevices(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="devices.csv"`)
	w.Write(data) //nolint:errcheck
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var e models.DeviceEntry
	if err := s.decodeJSON(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	e.ID = id
	e.MaintenanceID = chi.URLParam(r, "id")
	for _, v := range []models.VendorOS{e.OldVendor, e.NewVendor} {
		if v != models.VendorUnspecified && !v.Valid() {
			s.writeError(w, r, fmt.Errorf("%w: 不支援的 vendor_os: %s", cases.ErrValidation, v))
			return
		}
	}
	out, err := s.store.UpdateDeviceEntry(r.Context(), &e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteDeviceEntry(r.Context(), chi.URLParam(r, "id"), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMacs(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListMacEntries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateMac(w http.ResponseWriter, r *http.Request) {
	var e models.MacEntry
	if err := s.decodeJSON(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.importer.AddMac(r.Context(), chi.URLParam(r, "id"), &e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleImportMacs(w http.ResponseWriter, r *http.Request) {
	data, err := readImportBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.importer.ImportMacs(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, report)
}

func (s *Server) handleExportMacs(w http.ResponseWriter, r *http.Request) {
	data, err := s.importer.ExportMacs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="macs.csv"`)
	w.Write(data) //nolint:errcheck
}

func (s *Server) handleDeleteMac(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteMacEntry(r.Context(), chi.URLParam(r, "id"), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
