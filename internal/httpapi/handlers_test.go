package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"bodega.org/internal/inventory"
)

func TestHealthEndpointsArePublic(t *testing.T) {
	c := newTestAPI(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info", "/metrics"} {
		resp := c.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	c := newTestAPI(t)
	resp := c.get("/api/items", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAccessCookieAuthenticates(t *testing.T) {
	c := newTestAPI(t)
	c.seedUser("admin", "password123", inventory.RoleAdmin)
	session, _ := c.login("admin", "password123")

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/items", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: session.AccessToken})
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 via cookie, got %d", resp.StatusCode)
	}
}

func TestItemLifecycleOverHTTP(t *testing.T) {
	c := newTestAPI(t)
	c.seedUser("admin", "password123", inventory.RoleAdmin)
	c.seedUser("foreman", "password123", inventory.RoleForeman)
	admin, _ := c.login("admin", "password123")
	foreman, _ := c.login("foreman", "password123")

	// Foreman cannot create items.
	resp := c.post("/api/items", createItemRequest{Code: "CEM-001", UnitOfMeasurement: "bag"}, bearerHeader(foreman.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreman, got %d", resp.StatusCode)
	}

	resp = c.post("/api/items", createItemRequest{Code: "CEM-001", Description: "Portland cement", UnitOfMeasurement: "bag"}, bearerHeader(admin.AccessToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created inventory.Item
	decodeBody(t, resp, &created)
	if created.ID == "" || created.Status != inventory.ItemStatusActive {
		t.Fatalf("unexpected item: %+v", created)
	}

	// Duplicate code maps to 409.
	resp = c.post("/api/items", createItemRequest{Code: "CEM-001", UnitOfMeasurement: "bag"}, bearerHeader(admin.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	// Foreman can read.
	resp = c.get("/api/items/"+created.ID, nil, bearerHeader(foreman.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 read, got %d", resp.StatusCode)
	}

	resp = c.do(http.MethodDelete, "/api/items/"+created.ID, nil, bearerHeader(admin.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = c.get("/api/items/"+created.ID, nil, bearerHeader(admin.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestLocationManagementOverHTTP(t *testing.T) {
	c := newTestAPI(t)
	c.seedUser("admin", "password123", inventory.RoleAdmin)
	siteManager := c.seedUser("site-mgr", "password123", inventory.RoleSiteManager)
	c.seedUser("other-mgr", "password123", inventory.RoleSiteManager)
	admin, _ := c.login("admin", "password123")
	manager, _ := c.login("site-mgr", "password123")
	other, _ := c.login("other-mgr", "password123")

	// Site managers cannot create locations.
	resp := c.post("/api/locations", createLocationRequest{Name: "Site A", Type: "SITE"}, bearerHeader(manager.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for site manager create, got %d", resp.StatusCode)
	}

	resp = c.post("/api/locations", createLocationRequest{Name: "Site A", Type: "SITE", ManagerID: siteManager.ID}, bearerHeader(admin.AccessToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var loc inventory.Location
	decodeBody(t, resp, &loc)

	// The assigned manager may update; an unrelated manager may not.
	name := "Site A (north)"
	resp = c.do(http.MethodPut, "/api/locations/"+loc.ID, updateLocationRequest{Name: &name}, bearerHeader(manager.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assigned manager update: %d", resp.StatusCode)
	}
	resp = c.do(http.MethodPut, "/api/locations/"+loc.ID, updateLocationRequest{Name: &name}, bearerHeader(other.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unrelated manager update: expected 403, got %d", resp.StatusCode)
	}

	// Assign then duplicate-assign a worker.
	worker := c.seedUser("worker", "password123", inventory.RoleForeman)
	resp = c.post("/api/locations/"+loc.ID+"/users", locationUserRequest{UserID: worker.ID}, bearerHeader(manager.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: %d", resp.StatusCode)
	}
	resp = c.post("/api/locations/"+loc.ID+"/users", locationUserRequest{UserID: worker.ID}, bearerHeader(manager.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate assign: expected 409, got %d", resp.StatusCode)
	}
	resp = c.do(http.MethodDelete, "/api/locations/"+loc.ID+"/users/"+worker.ID, nil, bearerHeader(manager.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unassign: %d", resp.StatusCode)
	}

	// Admin clears the manager slot.
	resp = c.do(http.MethodDelete, "/api/locations/"+loc.ID+"/manager", nil, bearerHeader(admin.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove manager: %d", resp.StatusCode)
	}
	var cleared inventory.Location
	decodeBody(t, resp, &cleared)
	if cleared.ManagerID != "" {
		t.Fatalf("manager not cleared: %+v", cleared)
	}
}

func TestUserRoutesEnforceSelfOrAdmin(t *testing.T) {
	c := newTestAPI(t)
	admin := c.seedUser("admin", "password123", inventory.RoleAdmin)
	foreman := c.seedUser("foreman", "password123", inventory.RoleForeman)
	adminSession, _ := c.login("admin", "password123")
	foremanSession, _ := c.login("foreman", "password123")

	// Non-admin cannot create users or list them.
	resp := c.post("/api/users", createUserRequest{Username: "x", Password: "pw", Email: "x@y.z", Role: "FOREMAN"}, bearerHeader(foremanSession.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("create as foreman: expected 403, got %d", resp.StatusCode)
	}
	resp = c.get("/api/users", nil, bearerHeader(foremanSession.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("list as foreman: expected 403, got %d", resp.StatusCode)
	}

	// Self update allowed, foreign update forbidden, role change forbidden.
	name := "New Name"
	resp = c.do(http.MethodPut, "/api/users/"+foreman.ID, updateUserRequest{Name: &name}, bearerHeader(foremanSession.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("self update: %d", resp.StatusCode)
	}
	resp = c.do(http.MethodPut, "/api/users/"+admin.ID, updateUserRequest{Name: &name}, bearerHeader(foremanSession.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign update: expected 403, got %d", resp.StatusCode)
	}
	role := "ADMIN"
	resp = c.do(http.MethodPut, "/api/users/"+foreman.ID, updateUserRequest{Role: &role}, bearerHeader(foremanSession.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self role escalation: expected 403, got %d", resp.StatusCode)
	}

	// Admin search works and never leaks hashes.
	resp = c.get("/api/users/search", url.Values{"role": {"FOREMAN"}}, bearerHeader(adminSession.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: %d", resp.StatusCode)
	}
	var page struct {
		Data []map[string]any   `json:"data"`
		Meta inventory.PageMeta `json:"meta"`
	}
	decodeBody(t, resp, &page)
	if page.Meta.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("unexpected search page: %+v", page.Meta)
	}
	if _, leaked := page.Data[0]["password_hash"]; leaked {
		t.Fatal("password hash leaked in search results")
	}
}

func TestDeleteUserManagingLocationIsRejected(t *testing.T) {
	c := newTestAPI(t)
	manager := c.seedUser("wh-mgr", "password123", inventory.RoleWarehouseManager)
	c.seedUser("admin", "password123", inventory.RoleAdmin)
	adminSession, _ := c.login("admin", "password123")

	resp := c.post("/api/locations", createLocationRequest{Name: "Central", Type: "WAREHOUSE", ManagerID: manager.ID}, bearerHeader(adminSession.AccessToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create location: %d", resp.StatusCode)
	}

	resp = c.do(http.MethodDelete, "/api/users/"+manager.ID, nil, bearerHeader(adminSession.AccessToken))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for manager deletion, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodDelete, "/api/auth/login", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") == "" {
		t.Fatal("missing Allow header")
	}
}
