package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"drawboard/internal/auth"
	"drawboard/internal/models"
	"drawboard/internal/registry"
	"drawboard/internal/session"
)

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()

	reg := registry.New(nil, nil, nil, registry.DefaultConfig())
	sessions := session.NewManager(reg, auth.NewVerifier("test-secret"), auth.NewClaimsRoleResolver(), nil, session.DefaultConfig())

	srv := httptest.NewServer(SetupRoutes(NewHandler(reg, sessions, nil, nil)))
	t.Cleanup(srv.Close)
	return srv, reg
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", url, resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	body := getJSON(t, srv.URL+"/api/health")
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, reg := newTestServer(t)

	reg.AddPresence("canvas-1", "user-alice", "client-1", models.UserInfo{Name: "Alice"}, models.RoleEditor)
	reg.AddObject("canvas-1", &models.CanvasObject{Type: models.ObjectRectangle}, "user-alice", "client-1")

	body := getJSON(t, srv.URL+"/api/stats")
	if body["canvases"] != float64(1) {
		t.Errorf("canvases = %v, want 1", body["canvases"])
	}
	if body["objects"] != float64(1) {
		t.Errorf("objects = %v, want 1", body["objects"])
	}
}

func TestCanvasEndpoints(t *testing.T) {
	srv, reg := newTestServer(t)

	reg.AddPresence("canvas-1", "user-alice", "client-1", models.UserInfo{Name: "Alice"}, models.RoleEditor)
	reg.AddObject("canvas-1", &models.CanvasObject{Type: models.ObjectRectangle, Width: 10}, "user-alice", "client-1")
	reg.UpdateCursor("canvas-1", "user-alice", "client-1", models.Point{X: 3, Y: 4}, true, "pen", models.UserInfo{Name: "Alice"})

	t.Run("objects", func(t *testing.T) {
		body := getJSON(t, srv.URL+"/api/canvases/canvas-1/objects")
		if objects, _ := body["objects"].([]any); len(objects) != 1 {
			t.Errorf("objects = %v, want 1 entry", body["objects"])
		}
	})

	t.Run("presence", func(t *testing.T) {
		body := getJSON(t, srv.URL+"/api/canvases/canvas-1/presence")
		if presence, _ := body["presence"].([]any); len(presence) != 1 {
			t.Errorf("presence = %v, want 1 entry", body["presence"])
		}
	})

	t.Run("cursors", func(t *testing.T) {
		body := getJSON(t, srv.URL+"/api/canvases/canvas-1/cursors")
		if cursors, _ := body["cursors"].([]any); len(cursors) != 1 {
			t.Errorf("cursors = %v, want 1 entry", body["cursors"])
		}
	})

	t.Run("activity with limit", func(t *testing.T) {
		body := getJSON(t, srv.URL+"/api/canvases/canvas-1/activity?limit=1")
		if activity, _ := body["activity"].([]any); len(activity) != 1 {
			t.Errorf("activity = %v, want 1 entry", body["activity"])
		}
	})

	t.Run("snapshot", func(t *testing.T) {
		body := getJSON(t, srv.URL+"/api/canvases/canvas-1/snapshot")
		metadata, _ := body["metadata"].(map[string]any)
		if metadata["member_count"] != float64(1) {
			t.Errorf("member_count = %v, want 1", metadata["member_count"])
		}
	})

	t.Run("unknown canvas is empty not 404", func(t *testing.T) {
		body := getJSON(t, srv.URL+"/api/canvases/nope/objects")
		if objects, _ := body["objects"].([]any); len(objects) != 0 {
			t.Errorf("objects = %v, want empty", body["objects"])
		}
	})

	t.Run("durable views without persistence", func(t *testing.T) {
		for _, path := range []string{"/archive", "/audit"} {
			resp, err := http.Get(srv.URL + "/api/canvases/canvas-1" + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusServiceUnavailable {
				t.Errorf("GET %s status = %d, want 503", path, resp.StatusCode)
			}
		}
	})
}
