package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc
}

func TestBuiltinRoleMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)

	cases := []struct {
		role   string
		path   string
		method string
		allow  bool
	}{
		{"viewer", "/api/v1/console/stats/summary", "GET", true},
		{"viewer", "/api/v1/console/links", "GET", true},
		{"viewer", "/api/v1/console/links", "POST", false},
		{"viewer", "/api/v1/console/stats/aggregate", "POST", false},
		{"operator", "/api/v1/console/links", "POST", true},
		{"operator", "/api/v1/console/links/12", "PATCH", true},
		{"operator", "/api/v1/console/links/12/archive", "POST", true},
		{"operator", "/api/v1/console/stats/overview", "get", true},
		{"operator", "/api/v1/console/stats/aggregate", "POST", false},
		{"admin", "/api/v1/console/stats/aggregate", "POST", true},
		{"admin", "/api/v1/console/links/12", "PATCH", true},
		{"ADMIN", "/api/v1/console/authz/roles", "GET", true},
		{"guest", "/api/v1/console/links", "GET", false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceRole(tc.role, tc.path, tc.method)
		if err != nil {
			t.Fatalf("enforce %s %s %s failed: %v", tc.role, tc.method, tc.path, err)
		}
		if allow != tc.allow {
			t.Fatalf("enforce %s %s %s: want %v got %v", tc.role, tc.method, tc.path, tc.allow, allow)
		}
	}
}

func TestEnforceRoleRejectsEmptyRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if _, err := svc.EnforceRole("  ", "/console/links", "GET"); err == nil {
		t.Fatalf("expected empty role error")
	}
}

func TestBootstrapBuiltinRolesIdempotent(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	if err := svc.ReloadPolicy(); err != nil {
		t.Fatalf("reload policy failed: %v", err)
	}

	roles, err := svc.ListRolePolicies()
	if err != nil {
		t.Fatalf("list role policies failed: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 builtin roles, got %d", len(roles))
	}
	if roles[0].Role != "admin" || roles[1].Role != "operator" || roles[2].Role != "viewer" {
		t.Fatalf("unexpected role order: %+v", roles)
	}
	if len(roles[1].Policies) != 3 {
		t.Fatalf("expected operator to keep 3 direct policies, got %d", len(roles[1].Policies))
	}
}

func TestNormalizeHelpers(t *testing.T) {
	if got := NormalizeObject("/api/v1/console/links"); got != "/console/links" {
		t.Fatalf("unexpected object: %s", got)
	}
	if got := NormalizeObject("console/links"); got != "/console/links" {
		t.Fatalf("unexpected object without slash: %s", got)
	}
	if got := NormalizeObject("/api/v1"); got != "/" {
		t.Fatalf("unexpected root object: %s", got)
	}
	if got := NormalizeAction(" patch "); got != "PATCH" {
		t.Fatalf("unexpected action: %s", got)
	}
	role, err := NormalizeRole(" Read Only ")
	if err != nil || role != "role:read_only" {
		t.Fatalf("unexpected role: %s err=%v", role, err)
	}
	if _, err := NormalizeRole("__anchor__"); err == nil {
		t.Fatalf("expected anchor role rejected")
	}
}
