package httpapi

import (
	"net/http"
	"strings"

	"bodega.org/internal/audit"
	"bodega.org/internal/inventory"
	"bodega.org/internal/location"
)

type createLocationRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	ManagerID string `json:"manager_id"`
}

type updateLocationRequest struct {
	Name      *string `json:"name"`
	Type      *string `json:"type"`
	Status    *string `json:"status"`
	ManagerID *string `json:"manager_id"`
}

type setManagerRequest struct {
	ManagerID string `json:"manager_id"`
}

type locationUserRequest struct {
	UserID string `json:"user_id"`
}

func (a *API) handleLocations(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		var (
			locations []*inventory.Location
			err       error
		)
		switch {
		case q.Get("type") != "":
			locations, err = a.locations.ListByType(r.Context(), q.Get("type"))
		case q.Get("status") != "":
			locations, err = a.locations.ListByStatus(r.Context(), q.Get("status"))
		default:
			locations, err = a.locations.List(r.Context())
		}
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, locations)
	case http.MethodPost:
		var req createLocationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l, err := a.locations.Create(r.Context(), identity.ID, location.CreateInput{
			Name:      req.Name,
			Type:      req.Type,
			Status:    req.Status,
			ManagerID: req.ManagerID,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "location.create", map[string]any{
			"location_id": l.ID,
			"name":        l.Name,
			"type":        l.Type,
		})
		w.Header().Set("Location", "/api/locations/"+l.ID)
		writeJSON(w, http.StatusCreated, l)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleLocationSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	q := r.URL.Query()
	f := inventory.LocationFilter{
		Search:    q.Get("search"),
		Type:      inventory.LocationType(strings.ToUpper(q.Get("type"))),
		Status:    strings.ToUpper(q.Get("status")),
		ManagerID: q.Get("manager_id"),
		Page:      queryInt(q.Get("page")),
		Limit:     queryInt(q.Get("limit")),
	}
	if v := q.Get("has_manager"); v != "" {
		hasManager := v == "true" || v == "1"
		f.HasManager = &hasManager
	}
	locations, meta, err := a.locations.Search(r.Context(), f)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Data: locations, Meta: meta})
}

// handleLocationScoped dispatches /api/locations/{id} and its sub-resources
// {id}/manager and {id}/users[/{userID}].
func (a *API) handleLocationScoped(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/locations/"), "/")
	if rest == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		a.handleLocationByID(w, r, identity.ID, id)
	case len(parts) == 2 && parts[1] == "manager":
		a.handleLocationManager(w, r, identity.ID, id)
	case len(parts) == 2 && parts[1] == "users":
		a.handleLocationAssign(w, r, identity.ID, id)
	case len(parts) == 3 && parts[1] == "users":
		a.handleLocationUnassign(w, r, identity.ID, id, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleLocationByID(w http.ResponseWriter, r *http.Request, actorID, id string) {
	switch r.Method {
	case http.MethodGet:
		l, err := a.locations.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	case http.MethodPut:
		var req updateLocationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l, err := a.locations.Update(r.Context(), actorID, id, location.UpdateInput{
			Name:      req.Name,
			Type:      req.Type,
			Status:    req.Status,
			ManagerID: req.ManagerID,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "location.update", map[string]any{"location_id": id})
		writeJSON(w, http.StatusOK, l)
	case http.MethodDelete:
		if err := a.locations.Delete(r.Context(), actorID, id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "location.delete", map[string]any{"location_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleLocationManager(w http.ResponseWriter, r *http.Request, actorID, id string) {
	switch r.Method {
	case http.MethodPut:
		var req setManagerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l, err := a.locations.SetManager(r.Context(), actorID, id, req.ManagerID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "location.set_manager", map[string]any{
			"location_id": id,
			"manager_id":  req.ManagerID,
		})
		writeJSON(w, http.StatusOK, l)
	case http.MethodDelete:
		l, err := a.locations.SetManager(r.Context(), actorID, id, "")
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "location.remove_manager", map[string]any{"location_id": id})
		writeJSON(w, http.StatusOK, l)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleLocationAssign(w http.ResponseWriter, r *http.Request, actorID, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req locationUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.locations.AssignUser(r.Context(), actorID, id, req.UserID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "location.assign_user", map[string]any{
		"location_id": id,
		"user_id":     req.UserID,
	})
	writeJSON(w, http.StatusOK, l)
}

func (a *API) handleLocationUnassign(w http.ResponseWriter, r *http.Request, actorID, id, userID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	l, err := a.locations.UnassignUser(r.Context(), actorID, id, userID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "location.unassign_user", map[string]any{
		"location_id": id,
		"user_id":     userID,
	})
	writeJSON(w, http.StatusOK, l)
}
