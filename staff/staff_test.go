package staff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"restobar/auth"
	"restobar/gateway"
	"restobar/model"
)

type fakeStore struct {
	profiles map[uuid.UUID]model.Profile
	calls    []model.WaiterCall
	resets   map[uuid.UUID]string
	inUse    map[uuid.UUID]bool
}

func newFake(profiles ...model.Profile) *fakeStore {
	f := &fakeStore{
		profiles: make(map[uuid.UUID]model.Profile),
		resets:   make(map[uuid.UUID]string),
		inUse:    make(map[uuid.UUID]bool),
	}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeStore) ListProfiles(_ context.Context, q gateway.ProfileQuery) ([]model.Profile, error) {
	var out []model.Profile
	for _, p := range f.profiles {
		if (q.Role == "" || q.Role == p.Role) && (!q.ActiveOnly || p.Active) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ProfileByID(_ context.Context, id uuid.UUID) (model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return p, gateway.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) CreateProfile(_ context.Context, p *model.Profile) error {
	for _, other := range f.profiles {
		if other.DocumentID == p.DocumentID {
			return gateway.ErrDuplicate
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.profiles[p.ID] = *p
	return nil
}

func (f *fakeStore) SaveProfile(_ context.Context, p *model.Profile) error {
	f.profiles[p.ID] = *p
	return nil
}

func (f *fakeStore) AdminResetPassword(_ context.Context, id uuid.UUID, hash string) error {
	p, ok := f.profiles[id]
	if !ok {
		return gateway.ErrNotFound
	}
	p.PasswordHash = hash
	p.CurrentSessionID = nil
	f.profiles[id] = p
	f.resets[id] = hash
	return nil
}

func (f *fakeStore) DeleteUserCompletely(_ context.Context, id uuid.UUID) error {
	if _, ok := f.profiles[id]; !ok {
		return gateway.ErrNotFound
	}
	if f.inUse[id] {
		return gateway.ErrProfileInUse
	}
	delete(f.profiles, id)
	return nil
}

func (f *fakeStore) CreateWaiterCall(_ context.Context, call *model.WaiterCall) error {
	call.ID = uint(len(f.calls) + 1)
	f.calls = append(f.calls, *call)
	return nil
}

func (f *fakeStore) WaiterCallsFor(_ context.Context, waiterID uuid.UUID, limit int) ([]model.WaiterCall, error) {
	var out []model.WaiterCall
	for _, c := range f.calls {
		if CallIsFor(c, waiterID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func newService(store *fakeStore, resolver *auth.Resolver) *Service {
	svc := NewService(store, resolver, nil)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestCreateHashesAndNormalizes(t *testing.T) {
	store := newFake()
	svc := newService(store, nil)

	p, err := svc.Create(context.Background(), ProfileInput{
		DocumentID: " ab123 ",
		FullName:   "Lena Ortiz",
		Email:      "Lena@Example.COM",
		Role:       model.RoleWaiter,
		Password:   "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "AB123", p.DocumentID)
	require.NotNil(t, p.Email)
	assert.Equal(t, "lena@example.com", *p.Email)
	assert.True(t, p.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("secret1")))

	_, err = svc.Create(context.Background(), ProfileInput{DocumentID: "AB123", FullName: "Other", Role: model.RoleBar, Password: "secret1"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(newFake(), nil)
	tests := []struct {
		name string
		in   ProfileInput
		err  error
	}{
		{"missing name", ProfileInput{DocumentID: "1", Role: model.RoleBar, Password: "secret1"}, ErrInvalidProfile},
		{"bad role", ProfileInput{DocumentID: "1", FullName: "A", Role: "chef", Password: "secret1"}, ErrInvalidProfile},
		{"bad email", ProfileInput{DocumentID: "1", FullName: "A", Role: model.RoleBar, Email: "nope", Password: "secret1"}, ErrInvalidProfile},
		{"short password", ProfileInput{DocumentID: "1", FullName: "A", Role: model.RoleBar, Password: "12345"}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestUpdatePushesToResolver(t *testing.T) {
	id := uuid.New()
	store := newFake(model.Profile{ID: id, DocumentID: "X1", FullName: "Old Name", Role: model.RoleWaiter, Active: true, PasswordHash: "h"})
	resolver := auth.NewResolver(store, time.Second)
	svc := newService(store, resolver)
	inactive := false

	p, err := svc.Update(context.Background(), id, ProfileInput{DocumentID: "X1", FullName: "New Name", Role: model.RoleCashier, Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "h", p.PasswordHash, "empty password keeps the hash")
	assert.False(t, p.Active)

	cached, ok := resolver.Cached(id)
	require.True(t, ok)
	assert.Equal(t, "New Name", cached.FullName)
	assert.Equal(t, model.RoleCashier, cached.Role)
}

func TestResetPassword(t *testing.T) {
	id := uuid.New()
	sid := "s1"
	store := newFake(model.Profile{ID: id, FullName: "A", Role: model.RoleBar, CurrentSessionID: &sid})
	resolver := auth.NewResolver(store, time.Second)
	resolver.Put(store.profiles[id])
	svc := newService(store, resolver)

	assert.ErrorIs(t, svc.ResetPassword(context.Background(), id, "123"), ErrWeakPassword)
	require.NoError(t, svc.ResetPassword(context.Background(), id, "newpass"))

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.resets[id]), []byte("newpass")))
	assert.Nil(t, store.profiles[id].CurrentSessionID)
	_, ok := resolver.Cached(id)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	admin, waiter, cashier := uuid.New(), uuid.New(), uuid.New()
	store := newFake(
		model.Profile{ID: admin, Role: model.RoleAdmin},
		model.Profile{ID: waiter, Role: model.RoleWaiter},
		model.Profile{ID: cashier, Role: model.RoleCashier},
	)
	store.inUse[cashier] = true
	svc := newService(store, nil)

	assert.ErrorIs(t, svc.Delete(context.Background(), admin, admin), ErrSelfDelete)
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, cashier), ErrProfileInUse)
	require.NoError(t, svc.Delete(context.Background(), admin, waiter))
	assert.NotContains(t, store.profiles, waiter)
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, waiter), ErrNotFound)
}

func TestDefaultCallMessage(t *testing.T) {
	n := 7
	assert.Equal(t, "Attention required at table 7", DefaultCallMessage(&n))
	assert.Equal(t, "Presence requested", DefaultCallMessage(nil))
}

func TestCallWaiter(t *testing.T) {
	ana, ben, cook := uuid.New(), uuid.New(), uuid.New()
	store := newFake(
		model.Profile{ID: ana, Role: model.RoleWaiter, Active: true},
		model.Profile{ID: ben, Role: model.RoleWaiter, Active: true},
		model.Profile{ID: cook, Role: model.RoleKitchen, Active: true},
	)
	svc := newService(store, nil)
	ctx := context.Background()
	table := 4

	direct, err := svc.CallWaiter(ctx, cook, model.RoleKitchen, CallInput{RecipientID: &ana, TableNumber: &table})
	require.NoError(t, err)
	assert.Equal(t, "Attention required at table 4", direct.Message)
	assert.Equal(t, "pending", direct.Status)

	broadcast, err := svc.CallWaiter(ctx, cook, model.RoleKitchen, CallInput{Message: "  Plates ready  "})
	require.NoError(t, err)
	assert.Equal(t, "Plates ready", broadcast.Message)

	assert.True(t, CallIsFor(direct, ana))
	assert.False(t, CallIsFor(direct, ben))
	assert.True(t, CallIsFor(broadcast, ben))

	_, err = svc.CallWaiter(ctx, ana, model.RoleWaiter, CallInput{RecipientID: &cook})
	assert.ErrorIs(t, err, ErrInvalidCall)
	zero := 0
	_, err = svc.CallWaiter(ctx, cook, model.RoleKitchen, CallInput{TableNumber: &zero})
	assert.ErrorIs(t, err, ErrInvalidCall)

	calls, err := svc.CallsFor(ctx, ben)
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestPresence(t *testing.T) {
	p := NewPresence()
	ana := model.Profile{ID: uuid.New(), FullName: "Ana", Role: model.RoleWaiter}
	bob := model.Profile{ID: uuid.New(), FullName: "Bob", Role: model.RoleBar}

	leave1 := p.Join(ana)
	leave2 := p.Join(ana)
	leaveBob := p.Join(bob)
	online := p.Online()
	require.Len(t, online, 2)
	assert.Equal(t, "Bob", online[0].FullName)

	leave1()
	leave1()
	assert.Len(t, p.Online(), 2, "one of two connections still open")
	leave2()
	assert.Len(t, p.Online(), 1)

	p.Drop(bob.ID)
	again := p.Join(bob)
	leaveBob()
	assert.Len(t, p.Online(), 1, "stale release does not remove a newer join")
	again()
	assert.Empty(t, p.Online())
}
