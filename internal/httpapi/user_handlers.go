package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"bodega.org/internal/audit"
	"bodega.org/internal/auth"
	"bodega.org/internal/inventory"
	"bodega.org/internal/user"
)

type createUserRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	LocationID string `json:"location_id"`
}

type updateUserRequest struct {
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Role       *string `json:"role"`
	Status     *string `json:"status"`
	LocationID *string `json:"location_id"`
}

type pageResponse struct {
	Data any                `json:"data"`
	Meta inventory.PageMeta `json:"meta"`
}

// managerRoles may browse user listings; everyone else only reads single rows.
var managerRoles = map[inventory.Role]struct{}{
	inventory.RoleAdmin:            {},
	inventory.RoleWarehouseManager: {},
	inventory.RoleSiteManager:      {},
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, ok := managerRoles[identity.Role]; !ok {
			writeError(w, r, http.StatusForbidden, "insufficient role")
			return
		}
		users, err := a.users.List(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sanitizeUsers(users))
	case http.MethodPost:
		if identity.Role != inventory.RoleAdmin {
			writeError(w, r, http.StatusForbidden, "insufficient role")
			return
		}
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		u, err := a.users.Create(r.Context(), user.CreateInput{
			Username:   req.Username,
			Password:   req.Password,
			Name:       req.Name,
			Email:      req.Email,
			Role:       req.Role,
			Status:     req.Status,
			LocationID: req.LocationID,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
			"target_id": u.ID,
			"username":  u.Username,
			"role":      u.Role,
		})
		w.Header().Set("Location", "/api/users/"+u.ID)
		writeJSON(w, http.StatusCreated, u.Sanitize())
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if _, ok := managerRoles[identity.Role]; !ok {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return
	}
	q := r.URL.Query()
	users, meta, err := a.users.Search(r.Context(), inventory.UserFilter{
		Search:     q.Get("search"),
		Role:       inventory.Role(strings.ToUpper(q.Get("role"))),
		Status:     strings.ToUpper(q.Get("status")),
		LocationID: q.Get("location_id"),
		Page:       queryInt(q.Get("page")),
		Limit:      queryInt(q.Get("limit")),
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Data: sanitizeUsers(users), Meta: meta})
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if rest == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	if len(parts) == 2 && parts[1] == "locations" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		if _, ok := managerRoles[identity.Role]; !ok {
			writeError(w, r, http.StatusForbidden, "insufficient role")
			return
		}
		locations, err := a.users.ManagedLocations(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, locations)
		return
	}
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		u, err := a.users.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u.Sanitize())
	case http.MethodPut:
		if !a.canActOnUser(identity, id) {
			writeError(w, r, http.StatusForbidden, "you can only update your own account")
			return
		}
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		in := user.UpdateInput{
			Username:   req.Username,
			Password:   req.Password,
			Name:       req.Name,
			Email:      req.Email,
			Status:     req.Status,
			LocationID: req.LocationID,
		}
		// Role escalation stays admin-only even on self updates.
		if identity.Role == inventory.RoleAdmin {
			in.Role = req.Role
		} else if req.Role != nil {
			writeError(w, r, http.StatusForbidden, "only an admin can change roles")
			return
		}
		u, err := a.users.Update(r.Context(), id, in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.update", map[string]any{"target_id": id})
		writeJSON(w, http.StatusOK, u.Sanitize())
	case http.MethodDelete:
		if !a.canActOnUser(identity, id) {
			writeError(w, r, http.StatusForbidden, "you can only delete your own account")
			return
		}
		if err := a.users.Delete(r.Context(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{"target_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// canActOnUser: admins act on anyone, others only on themselves.
func (a *API) canActOnUser(identity auth.Identity, targetID string) bool {
	return identity.Role == inventory.RoleAdmin || identity.ID == targetID
}

func sanitizeUsers(users []*inventory.User) []inventory.SanitizedUser {
	out := make([]inventory.SanitizedUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitize())
	}
	return out
}

func queryInt(raw string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(raw))
	return n
}
