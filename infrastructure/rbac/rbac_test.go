package rbac

import (
	"net/http"
	"testing"

	"costdesk/infrastructure/cache"
)

func TestValidateResourceAccess(t *testing.T) {
	resources := []cache.Resource{
		{Role: RoleBuyer, UserResourceCode: "DOCUMENTS_VIEW", Method: http.MethodGet, Path: "/desk/documents/*"},
		{Role: RoleBuyer, UserResourceCode: "DOCUMENTS_EDIT", Method: http.MethodPost, Path: "/desk/api/documents/*/edits"},
	}

	cases := []struct {
		path, method string
		want         bool
	}{
		{"/desk/documents/7", http.MethodGet, true},
		{"/desk/documents/7", http.MethodPost, false},
		{"/desk/api/documents/7/edits", http.MethodPost, true},
		{"/desk/api/documents/7/status", http.MethodPost, false},
		{"/desk/exports", http.MethodGet, false},
	}
	for _, tc := range cases {
		if got := ValidateResourceAccess(resources, tc.path, tc.method); got != tc.want {
			t.Fatalf("%s %s: expected %v, got %v", tc.method, tc.path, tc.want, got)
		}
	}
}

func TestMatchPath_SegmentAndPrefixWildcards(t *testing.T) {
	if !matchPath("/a/*/c", "/a/7/c") {
		t.Fatalf("segment wildcard should match")
	}
	if matchPath("/a/*/c", "/a/7/d") {
		t.Fatalf("segment wildcard must respect non-wildcard segments")
	}
	if !matchPath("/a/b/*", "/a/b/c/d") {
		t.Fatalf("trailing wildcard should match deeper paths")
	}
	if matchPath("/a/b/*", "/a/x/c") {
		t.Fatalf("trailing wildcard must respect the prefix")
	}
}
