package auth

import "testing"

func testPrincipal(selfScoped bool, keys ...string) Principal {
	perms := make([]Permission, 0, len(keys))
	for _, k := range keys {
		perms = append(perms, Permission{ID: "p-" + k, Key: k})
	}
	return NewPrincipal(Identity{
		ID:   "identity-1",
		Role: &Role{ID: "role-1", Slug: "test", SelfScoped: selfScoped},
	}, perms)
}

func TestRequirementSatisfiedBy(t *testing.T) {
	cases := []struct {
		name string
		req  Requirement
		p    Principal
		want bool
	}{
		{"empty requirement admits any principal", Requirement{}, testPrincipal(false), true},
		{"all satisfied", RequireAll(PermissionManageUsers, PermissionManageRoles),
			testPrincipal(false, PermissionManageUsers, PermissionManageRoles), true},
		{"all with one missing", RequireAll(PermissionManageUsers, PermissionManageRoles),
			testPrincipal(false, PermissionManageUsers), false},
		{"any with one held", RequireAny(PermissionViewDownloadLogs, PermissionViewOwnDownloadLogs),
			testPrincipal(true, PermissionViewOwnDownloadLogs), true},
		{"any with none held", RequireAny(PermissionViewDownloadLogs, PermissionViewOwnDownloadLogs),
			testPrincipal(true, PermissionUploadDocuments), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.req.SatisfiedBy(tc.p); got != tc.want {
				t.Fatalf("SatisfiedBy = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPrincipalSelfScoped(t *testing.T) {
	if !testPrincipal(true).SelfScoped() {
		t.Fatal("expected self-scoped principal")
	}
	if testPrincipal(false).SelfScoped() {
		t.Fatal("expected unscoped principal")
	}
	var noRole Principal
	if noRole.SelfScoped() {
		t.Fatal("principal without role must not be self-scoped")
	}
}

func TestPermissionKeysBuiltinOrder(t *testing.T) {
	p := testPrincipal(false, PermissionUploadDocuments, PermissionManageUsers)
	keys := p.PermissionKeys()
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if keys[0] != PermissionManageUsers || keys[1] != PermissionUploadDocuments {
		t.Fatalf("unexpected order: %v", keys)
	}
}
