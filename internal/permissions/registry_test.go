package permissions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relato/internal/models"
)

// fakeStore implements Store in memory with the same contract as the
// gorm-backed one: upsert by code, wholesale grant replacement.
type fakeStore struct {
	mu     sync.Mutex
	perms  map[string]models.Permission      // keyed by code
	grants map[string][]models.UserPermission // keyed by user id
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		perms:  make(map[string]models.Permission),
		grants: make(map[string][]models.UserPermission),
	}
}

func (s *fakeStore) Upsert(_ context.Context, perm *models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if existing, ok := s.perms[perm.Code]; ok {
		existing.Name = perm.Name
		existing.Description = perm.Description
		existing.Module = perm.Module
		existing.Active = true
		s.perms[perm.Code] = existing
		return nil
	}
	perm.ID = uuid.New().String()
	perm.Active = true
	s.perms[perm.Code] = *perm
	return nil
}

func (s *fakeStore) FindByCodes(_ context.Context, codes []string) ([]models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Permission
	for _, code := range codes {
		if p, ok := s.perms[code]; ok && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) ReplaceGrants(_ context.Context, userID string, grants []models.UserPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.grants[userID] = grants
	return nil
}

func (s *fakeStore) HasGrant(_ context.Context, userID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	for _, g := range s.grants[userID] {
		for _, p := range s.perms {
			if p.ID == g.PermissionID && p.Code == code && p.Active {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *fakeStore) GrantedPermissions(_ context.Context, userID string) ([]models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Permission
	for _, g := range s.grants[userID] {
		for _, p := range s.perms {
			if p.ID == g.PermissionID && p.Active {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func newTestRegistry(store Store, users UserSource, catalog []CatalogEntry, defaults map[models.Role][]string) *Registry {
	r := NewRegistry(store, users)
	r.catalog = catalog
	r.defaults = defaults
	return r
}

var miniCatalog = []CatalogEntry{
	{Code: "FRI_READ", Name: "Read reports", Module: "fri"},
	{Code: "FRI_WRITE", Name: "Write reports", Module: "fri"},
}

var miniDefaults = map[models.Role][]string{
	models.RoleAdmin:    {"FRI_READ", "FRI_WRITE"},
	models.RoleOperator: {"FRI_READ"},
}

func TestSyncCatalogIsIdempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestRegistry(store, &fakeUsers{}, miniCatalog, miniDefaults)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.SyncCatalog(ctx))
	}

	assert.Len(t, store.perms, 2, "exactly one row per code")
	assert.True(t, store.perms["FRI_READ"].Active)
	assert.True(t, store.perms["FRI_WRITE"].Active)
}

func TestSyncCatalogPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("store down")
	r := newTestRegistry(store, &fakeUsers{}, miniCatalog, miniDefaults)

	assert.Error(t, r.SyncCatalog(context.Background()))
}

func TestAssignDefaultPermissionsMatchesRoleMap(t *testing.T) {
	store := newFakeStore()
	r := newTestRegistry(store, &fakeUsers{}, miniCatalog, miniDefaults)
	ctx := context.Background()
	require.NoError(t, r.SyncCatalog(ctx))

	require.NoError(t, r.AssignDefaultPermissions(ctx, "u1", models.RoleOperator))

	canRead, err := r.UserHasPermission(ctx, "u1", "FRI_READ")
	require.NoError(t, err)
	assert.True(t, canRead)

	canWrite, err := r.UserHasPermission(ctx, "u1", "FRI_WRITE")
	require.NoError(t, err)
	assert.False(t, canWrite)

	perms, err := r.GetUserPermissions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "FRI_READ", perms[0].Code)
	assert.Equal(t, GrantedBySystem, store.grants["u1"][0].GrantedBy)
}

func TestAssignDefaultPermissionsIsIdempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestRegistry(store, &fakeUsers{}, miniCatalog, miniDefaults)
	ctx := context.Background()
	require.NoError(t, r.SyncCatalog(ctx))

	require.NoError(t, r.AssignDefaultPermissions(ctx, "u1", models.RoleAdmin))
	first, err := r.GetUserPermissions(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, r.AssignDefaultPermissions(ctx, "u1", models.RoleAdmin))
	second, err := r.GetUserPermissions(ctx, "u1")
	require.NoError(t, err)

	assert.ElementsMatch(t, codesOf(first), codesOf(second))
	assert.Len(t, store.grants["u1"], 2)
}

func TestReassignmentReplacesGrantsWholesale(t *testing.T) {
	store := newFakeStore()
	r := newTestRegistry(store, &fakeUsers{}, miniCatalog, miniDefaults)
	ctx := context.Background()
	require.NoError(t, r.SyncCatalog(ctx))

	require.NoError(t, r.AssignDefaultPermissions(ctx, "u1", models.RoleAdmin))
	require.NoError(t, r.AssignDefaultPermissions(ctx, "u1", models.RoleOperator))

	perms, err := r.GetUserPermissions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"FRI_READ"}, codesOf(perms))
}

func TestAssignSkipsCodesMissingFromRegistry(t *testing.T) {
	store := newFakeStore()
	defaults := map[models.Role][]string{
		models.RoleOperator: {"FRI_READ", "NOT_SYNCED"},
	}
	r := newTestRegistry(store, &fakeUsers{}, miniCatalog, defaults)
	ctx := context.Background()
	require.NoError(t, r.SyncCatalog(ctx))

	require.NoError(t, r.AssignDefaultPermissions(ctx, "u1", models.RoleOperator))

	perms, err := r.GetUserPermissions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"FRI_READ"}, codesOf(perms))
}

func TestAssignUnknownRoleFails(t *testing.T) {
	r := newTestRegistry(newFakeStore(), &fakeUsers{}, miniCatalog, miniDefaults)
	assert.Error(t, r.AssignDefaultPermissions(context.Background(), "u1", models.Role("INTERN")))
}

func TestCompanyAccessAdminBypass(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		"admin": {Base: models.Base{ID: "admin"}, Role: models.RoleAdmin, CompanyID: "c1", Active: true},
	}}
	r := newTestRegistry(newFakeStore(), users, miniCatalog, miniDefaults)

	assert.True(t, r.UserCanAccessCompanyData(context.Background(), "admin", "c1"))
	assert.True(t, r.UserCanAccessCompanyData(context.Background(), "admin", "some-other-company"))
}

func TestCompanyAccessConfinedToOwnCompany(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		"op": {Base: models.Base{ID: "op"}, Role: models.RoleOperator, CompanyID: "c1", Active: true},
	}}
	r := newTestRegistry(newFakeStore(), users, miniCatalog, miniDefaults)

	assert.True(t, r.UserCanAccessCompanyData(context.Background(), "op", "c1"))
	assert.False(t, r.UserCanAccessCompanyData(context.Background(), "op", "c2"))
}

func TestCompanyAccessFailsClosed(t *testing.T) {
	ctx := context.Background()

	// Unknown user
	r := newTestRegistry(newFakeStore(), &fakeUsers{users: map[string]*models.User{}}, miniCatalog, miniDefaults)
	assert.False(t, r.UserCanAccessCompanyData(ctx, "ghost", "c1"))

	// Lookup error
	r = newTestRegistry(newFakeStore(), &fakeUsers{err: errors.New("db down")}, miniCatalog, miniDefaults)
	assert.False(t, r.UserCanAccessCompanyData(ctx, "op", "c1"))

	// Inactive user
	users := &fakeUsers{users: map[string]*models.User{
		"op": {Base: models.Base{ID: "op"}, Role: models.RoleOperator, CompanyID: "c1", Active: false},
	}}
	r = newTestRegistry(newFakeStore(), users, miniCatalog, miniDefaults)
	assert.False(t, r.UserCanAccessCompanyData(ctx, "op", "c1"))
}

func codesOf(perms []models.Permission) []string {
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}
	return codes
}
