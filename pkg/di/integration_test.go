package di

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-entity-cache/cache"
	"github.com/goliatone/go-entity-cache/entitycache"
	"github.com/goliatone/go-entity-cache/store/bunstore"
	"github.com/goliatone/go-entity-cache/store/memstore"
	repository "github.com/goliatone/go-repository-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// User represents a test model for integration tests
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID       string `json:"id" bun:"id,pk" msgpack:"id"`
	Name     string `json:"name" bun:"name" msgpack:"name"`
	Email    string `json:"email" bun:"email,unique" msgpack:"email"`
	CreateTs int64  `json:"create_ts" bun:"create_ts" msgpack:"create_ts"`
}

func newUserStore(users ...User) *memstore.Store[User] {
	store := memstore.New[User]("users")
	for _, u := range users {
		u := u
		_, _ = store.InsertOne(context.Background(), &u)
	}
	return store
}

func newSQLiteUsers(t testing.TB) *bunstore.Store[User] {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.NewCreateTable().Model((*User)(nil)).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to create users table: %v", err)
	}

	store, err := bunstore.New[User](db)
	if err != nil {
		t.Fatalf("Failed to create bun store: %v", err)
	}
	return store
}

// mockUserRepository provides a fake go-repository-bun repository for testing
type mockUserRepository struct {
	mu        sync.RWMutex
	users     map[string]User
	callCount map[string]int // Track method calls to verify caching behavior
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:     make(map[string]User),
		callCount: make(map[string]int),
	}
}

func (m *mockUserRepository) trackCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount[method]++
}

func (m *mockUserRepository) getCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount[method]
}

func (m *mockUserRepository) Get(ctx context.Context, criteria ...repository.SelectCriteria) (*User, error) {
	m.trackCall("Get")
	return nil, fmt.Errorf("mock Get: %w", sql.ErrNoRows)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error) {
	m.trackCall("GetByID")
	m.mu.RLock()
	user, exists := m.users[id]
	m.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, sql.ErrNoRows)
	}
	return &user, nil
}

func (m *mockUserRepository) Create(ctx context.Context, user *User, criteria ...repository.InsertCriteria) (*User, error) {
	m.trackCall("Create")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return user, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *User, criteria ...repository.UpdateCriteria) (*User, error) {
	m.trackCall("Update")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return user, nil
}

func (m *mockUserRepository) Delete(ctx context.Context, user *User) error {
	m.trackCall("Delete")
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, user.ID)
	return nil
}

func TestEndToEndEntityCacheFlow(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	docs := newSQLiteUsers(t)
	users, err := NewEntityCache[User](container, docs, entitycache.Config{
		Expire:       time.Minute,
		UniqueFields: []string{"email"},
	})
	if err != nil {
		t.Fatalf("Failed to create entity cache: %v", err)
	}

	ctx := context.Background()
	testUser := &User{ID: "test-123", Name: "Test User", Email: "test@example.com", CreateTs: time.Now().Unix()}

	// Step 1: a lookup before the user exists caches a negative marker
	if got, err := users.FindByUniqueField(ctx, "email", "test@example.com"); err != nil || got != nil {
		t.Fatalf("Expected no user before insert, got %+v, %v", got, err)
	}

	// Step 2: insert clears the marker
	if _, err := users.InsertOne(ctx, testUser); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	got, err := users.FindByUniqueField(ctx, "email", "test@example.com")
	if err != nil {
		t.Fatalf("FindByUniqueField failed: %v", err)
	}
	if got == nil || got.ID != testUser.ID || got.Name != testUser.Name {
		t.Fatalf("FindByUniqueField returned incorrect user: got %+v, expected %+v", got, testUser)
	}

	// Step 3: the primary entry was written alongside the indirection
	entry, err := container.Store().Get(ctx, cache.BuildKey("users", entitycache.IDFieldKey, "test-123"))
	if err != nil || !entry.IsValue() {
		t.Errorf("Expected primary entry after unique lookup, got %s, %v", entry.State, err)
	}

	// Step 4: updates are visible through both lookups
	updated := *testUser
	updated.Name = "Renamed User"
	if _, err := users.UpdateOne(ctx, &updated); err != nil {
		t.Fatalf("UpdateOne failed: %v", err)
	}

	byID, err := users.FindByID(ctx, "test-123")
	if err != nil || byID == nil || byID.Name != "Renamed User" {
		t.Errorf("Expected renamed user by id, got %+v, %v", byID, err)
	}
	byEmail, err := users.FindByUniqueField(ctx, "email", "test@example.com")
	if err != nil || byEmail == nil || byEmail.Name != "Renamed User" {
		t.Errorf("Expected renamed user by email, got %+v, %v", byEmail, err)
	}

	// Step 5: deletes clear every entry
	res, err := users.DeleteByID(ctx, "test-123")
	if err != nil || res == nil || res.Affected != 1 {
		t.Fatalf("DeleteByID failed: %+v, %v", res, err)
	}
	if got, _ := users.FindByUniqueField(ctx, "email", "test@example.com"); got != nil {
		t.Errorf("Expected deleted user to be gone, got %+v", got)
	}
}

func TestRepositoryCacheFlow(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	mockRepo := newMockUserRepository()
	_, _ = mockRepo.Create(context.Background(), &User{ID: "u1", Name: "Ada", Email: "ada@example.com"})

	users, err := NewRepositoryCache[User](container, mockRepo, entitycache.Config{Expire: time.Minute})
	if err != nil {
		t.Fatalf("Failed to create repository cache: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := users.FindByID(ctx, "u1")
		if err != nil || got == nil || got.Name != "Ada" {
			t.Fatalf("FindByID = %+v, %v", got, err)
		}
	}
	if callCount := mockRepo.getCallCount("GetByID"); callCount != 1 {
		t.Errorf("Expected base repository GetByID to be called once, got %d calls", callCount)
	}

	if _, err := users.UpdateOne(ctx, &User{ID: "u1", Name: "Ada L.", Email: "ada@example.com"}); err != nil {
		t.Fatalf("UpdateOne failed: %v", err)
	}
	if callCount := mockRepo.getCallCount("Update"); callCount != 1 {
		t.Errorf("Expected Update to pass through once, got %d calls", callCount)
	}

	got, err := users.FindByID(ctx, "u1")
	if err != nil || got == nil || got.Name != "Ada L." {
		t.Errorf("Expected updated user after invalidation, got %+v, %v", got, err)
	}

	if got, err := users.FindByID(ctx, "ghost"); err != nil || got != nil {
		t.Errorf("Expected repository not found to map to nil, got %+v, %v", got, err)
	}
}

func TestCacheExpiryFlow(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	docs := newUserStore(User{ID: "expiry-test", Name: "Expiry Test User", Email: "expiry@example.com"})
	users, err := NewEntityCache[User](container, docs, entitycache.Config{
		Expire:          time.Second,
		ExpiryDeviation: -1,
	})
	if err != nil {
		t.Fatalf("Failed to create entity cache: %v", err)
	}
	ctx := context.Background()

	// First two calls - one document store query
	for i := 0; i < 2; i++ {
		if _, err := users.FindByID(ctx, "expiry-test"); err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
	}
	if n := docs.Calls(memstore.MethodFindByID); n != 1 {
		t.Errorf("Expected document store to be called once, got %d calls", n)
	}

	// Wait for expiry
	time.Sleep(1100 * time.Millisecond)

	if _, err := users.FindByID(ctx, "expiry-test"); err != nil {
		t.Fatalf("FindByID after expiry failed: %v", err)
	}
	if n := docs.Calls(memstore.MethodFindByID); n != 2 {
		t.Errorf("Expected document store to be called again after expiry, got %d calls", n)
	}
}

func TestNamespacesDoNotCollide(t *testing.T) {
	type Team struct {
		ID   string `msgpack:"id"`
		Name string `msgpack:"name"`
	}

	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}

	users := newUserStore(User{ID: "1", Name: "user one"})
	teams := memstore.New[Team]("")
	_, _ = teams.InsertOne(context.Background(), &Team{ID: "1", Name: "team one"})

	cfg := entitycache.Config{Expire: time.Minute}
	userCache, err := NewEntityCache[User](container, users, cfg)
	if err != nil {
		t.Fatalf("Failed to create user cache: %v", err)
	}
	teamCache, err := NewEntityCache[Team](container, teams, cfg)
	if err != nil {
		t.Fatalf("Failed to create team cache: %v", err)
	}

	ctx := context.Background()
	u, _ := userCache.FindByID(ctx, "1")
	tm, _ := teamCache.FindByID(ctx, "1")

	if u == nil || u.Name != "user one" {
		t.Errorf("Expected user one, got %+v", u)
	}
	if tm == nil || tm.Name != "team one" {
		t.Errorf("Expected team one, got %+v", tm)
	}
	if teamCache.Namespace() != "teams" {
		t.Errorf("Expected derived namespace teams, got %s", teamCache.Namespace())
	}
}
