package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"nosam/internal/core"
	"nosam/internal/log"
)

const defaultListLimit = 100

func handleListObjects(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", defaultListLimit)
		if err != nil {
			httpError(w, http.StatusBadRequest, log.ErrorTypeInvalidRequest, "%v", err)
			return
		}
		includeData, err := queryBool(r, "includeData", true)
		if err != nil {
			httpError(w, http.StatusBadRequest, log.ErrorTypeInvalidRequest, "%v", err)
			return
		}
		res, err := deps.Client.ListObjects(r.Context(), chi.URLParam(r, "type"), limit, includeData).Await(r.Context())
		if err != nil {
			fail(w, r, log.OpList, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleCreateObject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data core.Data
		if !decodeBody(w, r, &data) {
			return
		}
		obj, err := deps.Client.CreateObject(r.Context(), chi.URLParam(r, "type"), data).Await(r.Context())
		if err != nil {
			fail(w, r, log.OpCreate, err)
			return
		}
		writeJSON(w, http.StatusCreated, obj)
	}
}

func handleGetObject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj, err := deps.Client.GetObject(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id")).Await(r.Context())
		if err != nil {
			fail(w, r, log.OpRead, err)
			return
		}
		writeJSON(w, http.StatusOK, obj)
	}
}

func handleUpdateObject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates core.Data
		if !decodeBody(w, r, &updates) {
			return
		}
		obj, err := deps.Client.UpdateObject(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id"), updates).Await(r.Context())
		if err != nil {
			fail(w, r, log.OpUpdate, err)
			return
		}
		writeJSON(w, http.StatusOK, obj)
	}
}

func handleDeleteObject(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Client.DeleteObject(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "id")).Await(r.Context())
		if err != nil {
			fail(w, r, log.OpDelete, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleBatchCreate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var items []core.Data
		if !decodeBody(w, r, &items) {
			return
		}
		created, err := deps.Client.BatchCreate(r.Context(), chi.URLParam(r, "type"), items).Await(r.Context())
		if err != nil {
			fail(w, r, log.OpBatch, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"items": created, "created": len(created)})
	}
}

func handleSearchObjects(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res, err := deps.Client.SearchObjects(r.Context(), chi.URLParam(r, "type"), q.Get("q"), q.Get("field")).Await(r.Context())
		if err != nil {
			fail(w, r, log.OpSearch, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleClearCollection(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Client.ClearCollection(r.Context(), chi.URLParam(r, "type")).Await(r.Context())
		if err != nil {
			fail(w, r, log.OpClear, err)
			return
		}
		code := http.StatusOK
		if !res.Success {
			code = http.StatusInternalServerError
		}
		writeJSON(w, code, res)
	}
}

// handleExport writes every collection, or with ?type= only that type's
// collection as a JSON array.
func handleExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		objectType := strings.TrimSpace(r.URL.Query().Get("type"))
		var (
			body     any
			err      error
			filename = "nosam-export.json"
		)
		if objectType == "" {
			body, err = deps.Client.ExportAll(r.Context()).Await(r.Context())
		} else {
			body, err = deps.Client.ExportCollection(r.Context(), objectType).Await(r.Context())
			filename = "nosam-" + objectType + "-export.json"
		}
		if err != nil {
			fail(w, r, log.OpExport, err)
			return
		}
		if r.URL.Query().Get("download") != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// handleImport replaces the collections named in the body, or with ?type=
// that type's collection from a JSON array.
func handleImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			httpError(w, http.StatusBadRequest, log.ErrorTypeInvalidRequest, "read body: %v", err)
			return
		}
		if objectType := strings.TrimSpace(r.URL.Query().Get("type")); objectType != "" {
			_, err = deps.Client.ImportCollection(r.Context(), objectType, raw).Await(r.Context())
		} else {
			_, err = deps.Client.ImportAll(r.Context(), raw).Await(r.Context())
		}
		if err != nil {
			fail(w, r, log.OpImport, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
