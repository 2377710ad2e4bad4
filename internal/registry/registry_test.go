package registry

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewClient_Defaults(t *testing.T) {
	t.Setenv("JVCLI_REGISTRY_URL", "")

	client := NewClient("", "")
	if client.BaseURL != DefaultURL {
		t.Errorf("expected BaseURL %q, got %q", DefaultURL, client.BaseURL)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient not initialized")
	}
}

func TestNewClient_EnvOverride(t *testing.T) {
	t.Setenv("JVCLI_REGISTRY_URL", "http://localhost:9000/")

	client := NewClient("", "tok")
	if client.BaseURL != "http://localhost:9000" {
		t.Errorf("expected trailing slash trimmed, got %q", client.BaseURL)
	}
	if client.AuthToken != "tok" {
		t.Errorf("expected AuthToken 'tok', got %q", client.AuthToken)
	}
}

func TestClient_Signup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/signup" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}

		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "testuser" || req.Email != "test@example.com" || req.Password != "password123" {
			t.Errorf("unexpected request body: %+v", req)
		}

		json.NewEncoder(w).Encode(Credentials{
			Token:      "test_token",
			Namespaces: Namespaces{Default: "testuser", Groups: []string{"testuser"}},
			Email:      "test@example.com",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	creds, err := client.Signup("testuser", "test@example.com", "password123")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	if creds.Token != "test_token" {
		t.Errorf("expected token 'test_token', got %q", creds.Token)
	}
	if creds.Namespaces.Default != "testuser" {
		t.Errorf("expected default namespace 'testuser', got %q", creds.Namespaces.Default)
	}
	if len(creds.Namespaces.Groups) != 1 {
		t.Errorf("expected 1 group, got %d", len(creds.Namespaces.Groups))
	}
}

func TestClient_Signup_Taken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Username or email already taken"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	creds, err := client.Signup("existinguser", "existing@example.com", "password123")
	if err == nil {
		t.Fatal("expected error for taken username")
	}
	if creds != nil {
		t.Error("expected nil credentials on failure")
	}
	if err.Error() != "Username or email already taken" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			EmailOrUsername string `json:"emailOrUsername"`
			Password        string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.EmailOrUsername != "test@example.com" {
			t.Errorf("expected emailOrUsername 'test@example.com', got %q", req.EmailOrUsername)
		}

		json.NewEncoder(w).Encode(Credentials{
			Token:      "test_token",
			Namespaces: Namespaces{Default: "testuser", Groups: []string{"testuser"}},
			Email:      "test@example.com",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	creds, err := client.Login("test@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if creds.Email != "test@example.com" {
		t.Errorf("expected email 'test@example.com', got %q", creds.Email)
	}
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid credentials"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	creds, err := client.Login("test@example.com", "wrongpassword")
	if err == nil {
		t.Fatal("expected error for invalid credentials")
	}
	if creds != nil {
		t.Error("expected nil credentials on failure")
	}
}

func TestClient_PackageInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("name") != "test_package" {
			t.Errorf("expected name 'test_package', got %q", r.URL.Query().Get("name"))
		}
		if r.URL.Query().Get("version") != "1.0.0" {
			t.Errorf("expected version '1.0.0', got %q", r.URL.Query().Get("version"))
		}
		if r.Header.Get("Authorization") != "Bearer valid_token" {
			t.Errorf("unexpected Authorization header: %q", r.Header.Get("Authorization"))
		}

		json.NewEncoder(w).Encode(map[string]any{"name": "test_package", "version": "1.0.0"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "valid_token")
	info, err := client.PackageInfo("test_package", "1.0.0")
	if err != nil {
		t.Fatalf("PackageInfo failed: %v", err)
	}
	if info["name"] != "test_package" {
		t.Errorf("unexpected package name: %v", info["name"])
	}
}

func TestClient_PackageInfo_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid token"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "invalid_token")
	info, err := client.PackageInfo("test_package", "1.0.0")
	if err == nil {
		t.Fatal("expected error for invalid token")
	}
	if info != nil {
		t.Error("expected nil info on failure")
	}
}

func TestClient_DownloadPackage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("name") != "testpackage" || q.Get("info") != "false" || q.Get("version") != "1.0.0" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no Authorization header, got %q", r.Header.Get("Authorization"))
		}

		json.NewEncoder(w).Encode(map[string]any{"package": "content"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	pkg, err := client.DownloadPackage("testpackage", "1.0.0", false)
	if err != nil {
		t.Fatalf("DownloadPackage failed: %v", err)
	}
	if pkg["package"] != "content" {
		t.Errorf("unexpected package payload: %v", pkg)
	}
}

func TestClient_DownloadPackage_VersionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Version not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	pkg, err := client.DownloadPackage("test_package", "non_existent_version", false)
	if err == nil {
		t.Fatal("expected error for missing version")
	}
	if pkg != nil {
		t.Error("expected nil package on failure")
	}
}

func TestClient_HasPackage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "present" {
			json.NewEncoder(w).Encode(map[string]any{"file": 1})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Package not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if !client.HasPackage("present", "^1.0.0") {
		t.Error("expected present package to resolve")
	}
	if client.HasPackage("absent", "^1.0.0") {
		t.Error("expected absent package to not resolve")
	}
}

func TestClient_CreateNamespace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/namespace" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer valid_token" {
			t.Errorf("unexpected Authorization header: %q", r.Header.Get("Authorization"))
		}

		var req struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "test_namespace" {
			t.Errorf("expected name 'test_namespace', got %q", req.Name)
		}

		json.NewEncoder(w).Encode(map[string]any{"namespace": "test_namespace"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "valid_token")
	result, err := client.CreateNamespace("test_namespace")
	if err != nil {
		t.Fatalf("CreateNamespace failed: %v", err)
	}
	if result["namespace"] != "test_namespace" {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Query  string `json:"q"`
			Limit  int    `json:"limit"`
			Offset int    `json:"offset"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Query != "test_query" || req.Limit != 15 || req.Offset != 0 {
			t.Errorf("unexpected request body: %+v", req)
		}

		json.NewEncoder(w).Encode(SearchResult{
			Packages: []map[string]any{
				{"name": "package1"},
				{"name": "package2"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	result, err := client.Search("test_query", 15, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Packages) != 2 {
		t.Errorf("expected 2 packages, got %d", len(result.Packages))
	}
}

func TestClient_Publish(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "testuser_action.tar.gz")
	if err := os.WriteFile(archive, []byte("fake archive content"), 0644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/publish" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer valid_token" {
			t.Errorf("unexpected Authorization header: %q", r.Header.Get("Authorization"))
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("visibility"); got != "public" {
			t.Errorf("expected visibility 'public', got %q", got)
		}
		if got := r.FormValue("namespace"); got != "testuser" {
			t.Errorf("expected namespace 'testuser', got %q", got)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("reading file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "testuser_action.tar.gz" {
			t.Errorf("unexpected filename: %q", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "fake archive content" {
			t.Errorf("unexpected file content: %q", content)
		}

		json.NewEncoder(w).Encode(PublishResponse{Message: "Action published successfully"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "valid_token")
	result, err := client.Publish(archive, "public", "testuser")
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if result.Message != "Action published successfully" {
		t.Errorf("unexpected message: %q", result.Message)
	}
}

func TestClient_Publish_VersionConflict(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "pkg.tar.gz")
	if err := os.WriteFile(archive, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:   "VERSION_CONFLICT",
			Message: "Version 1.0.0 already published",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "valid_token")
	_, err := client.Publish(archive, "public", "testuser")
	if err == nil {
		t.Fatal("expected error for version conflict")
	}
	if err.Error() != "VERSION_CONFLICT: Version 1.0.0 already published" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestClient_Publish_MissingArchive(t *testing.T) {
	client := NewClient("http://localhost:1", "valid_token")
	_, err := client.Publish("/nonexistent/pkg.tar.gz", "public", "testuser")
	if err == nil {
		t.Fatal("expected error for missing archive")
	}
}

func TestClient_ParseError_PlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("gateway exploded"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.PackageInfo("pkg", "1.0.0")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "registry error: 500") {
		t.Errorf("unexpected error message: %v", err)
	}
}
