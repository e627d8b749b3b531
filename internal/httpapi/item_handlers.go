package httpapi

import (
	"net/http"
	"strings"

	"bodega.org/internal/audit"
	"bodega.org/internal/inventory"
	"bodega.org/internal/item"
)

type createItemRequest struct {
	Code              string `json:"code"`
	Description       string `json:"description"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
	Status            string `json:"status"`
}

type updateItemRequest struct {
	Code              *string `json:"code"`
	Description       *string `json:"description"`
	UnitOfMeasurement *string `json:"unit_of_measurement"`
	Status            *string `json:"status"`
}

func (a *API) handleItems(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := a.items.List(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req createItemRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		i, err := a.items.Create(r.Context(), identity.ID, item.CreateInput{
			Code:              req.Code,
			Description:       req.Description,
			UnitOfMeasurement: req.UnitOfMeasurement,
			Status:            req.Status,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "item.create", map[string]any{
			"item_id": i.ID,
			"code":    i.Code,
		})
		w.Header().Set("Location", "/api/items/"+i.ID)
		writeJSON(w, http.StatusCreated, i)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleItemSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	q := r.URL.Query()
	items, meta, err := a.items.Search(r.Context(), inventory.ItemFilter{
		Search: q.Get("search"),
		Status: strings.ToUpper(q.Get("status")),
		Page:   queryInt(q.Get("page")),
		Limit:  queryInt(q.Get("limit")),
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Data: items, Meta: meta})
}

func (a *API) handleItemByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/items/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		i, err := a.items.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, i)
	case http.MethodPut:
		var req updateItemRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		i, err := a.items.Update(r.Context(), identity.ID, id, item.UpdateInput{
			Code:              req.Code,
			Description:       req.Description,
			UnitOfMeasurement: req.UnitOfMeasurement,
			Status:            req.Status,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "item.update", map[string]any{"item_id": id})
		writeJSON(w, http.StatusOK, i)
	case http.MethodDelete:
		if err := a.items.Delete(r.Context(), identity.ID, id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "item.delete", map[string]any{"item_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
