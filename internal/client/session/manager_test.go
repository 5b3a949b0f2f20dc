package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dmitrijs2005/studycircle/internal/client/client"
	"github.com/dmitrijs2005/studycircle/internal/client/models"
	"github.com/dmitrijs2005/studycircle/internal/logging"
)

func strPtr(s string) *string { return &s }

func TestSignUp_PublishesInputs(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)

	id, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)

	cur := m.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "a@b.com", cur.Email)
	assert.Equal(t, "Ann", cur.Name)
	assert.NotEmpty(t, cur.ID)
	assert.Equal(t, id, cur)
	assert.Equal(t, cur, repo.stored(t))
}

func TestSignUp_Validation(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)

	tests := []struct {
		name        string
		email, user string
		field       string
	}{
		{name: "empty email", email: "", user: "Ann", field: "email"},
		{name: "blank email", email: "   ", user: "Ann", field: "email"},
		{name: "empty name", email: "a@b.com", user: "", field: "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SignUp(context.Background(), tt.email, []byte("pw"), tt.user)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			require.ErrorIs(t, err, models.ErrValidation)
			_, ok := verr.Message(tt.field)
			assert.True(t, ok, "expected error on %s, got %v", tt.field, verr.Fields)
		})
	}
	assert.Nil(t, m.Current())
	assert.Zero(t, repo.writes())
}

func TestLogIn_Validation(t *testing.T) {
	m := newTestManager(t, newSpyRepo())

	_, err := m.LogIn(context.Background(), "a@b.com", nil)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	msg, ok := verr.Message("password")
	require.True(t, ok)
	assert.Equal(t, "this field is required", msg)

	_, err = m.LogIn(context.Background(), "", []byte("x"))
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Nil(t, m.Current())
}

func TestLogOut_ClearsPublishedAndStored(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)

	_, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	require.NotNil(t, repo.stored(t))

	require.NoError(t, m.LogOut(context.Background()))

	assert.Nil(t, m.Current())
	assert.Nil(t, repo.stored(t))
}

func TestLogInLogOut_StorageEntryAbsent(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)

	_, err := m.LogIn(context.Background(), "e@f.com", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, m.LogOut(context.Background()))

	raw, err := repo.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestLogOut_WithoutIdentity(t *testing.T) {
	m := newTestManager(t, newSpyRepo())
	require.NoError(t, m.LogOut(context.Background()))
	assert.Nil(t, m.Current())
}

func TestLogOut_IgnoresCancelledContext(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)
	_, err := m.LogIn(context.Background(), "e@f.com", []byte("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.LogOut(ctx))
	assert.Nil(t, m.Current())
	assert.Nil(t, repo.stored(t))
}

func TestInit_RestoreRoundTrip(t *testing.T) {
	repo := newSpyRepo()
	first := newTestManager(t, repo)

	_, err := first.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	saved, err := first.UpdateProfile(context.Background(), models.ProfileUpdate{
		Name:      "Ann",
		Email:     "a@b.com",
		Bio:       strPtr("Physics tutor"),
		Interests: strPtr("optics"),
	})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newTestManager(t, repo)
	if diff := cmp.Diff(saved, second.Current()); diff != "" {
		t.Errorf("restored identity mismatch (-want +got):\n%s", diff)
	}
}

func TestInit_ReadyClosedOnce(t *testing.T) {
	m := New(client.NewMockClient(0, logging.Nop()), newSpyRepo())
	t.Cleanup(func() { _ = m.Close() })

	select {
	case <-m.Ready():
		t.Fatal("ready before Init")
	default:
	}

	require.NoError(t, m.Init(context.Background()))
	require.NoError(t, m.Init(context.Background()))

	select {
	case <-m.Ready():
	default:
		t.Fatal("not ready after Init")
	}
}

func TestInit_ToleratesMissingOptionalFields(t *testing.T) {
	repo := newSpyRepo()
	require.NoError(t, repo.Set(context.Background(), DefaultKey,
		[]byte(`{"id":"1700000000000","email":"a@b.com","name":"Ann","extra":true}`)))

	m := newTestManager(t, repo)
	assert.Equal(t, &models.Identity{ID: "1700000000000", Email: "a@b.com", Name: "Ann"}, m.Current())
}

func TestInit_MalformedRecordIsAbsent(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":     `{oops`,
		"missing name": `{"id":"1","email":"a@b.com"}`,
		"empty id":     `{"id":"","email":"a@b.com","name":"Ann"}`,
	} {
		t.Run(name, func(t *testing.T) {
			repo := newSpyRepo()
			require.NoError(t, repo.Set(context.Background(), DefaultKey, []byte(raw)))

			var buf bytes.Buffer
			m := newTestManager(t, repo, WithLogger(logging.New("debug", "text", &buf)))

			assert.Nil(t, m.Current())
			assert.False(t, m.Degraded())
			assert.Contains(t, buf.String(), "ignoring malformed stored session")
		})
	}
}

func TestInit_ReadFailureDegrades(t *testing.T) {
	repo := newSpyRepo()
	repo.getErr = errDiskFull

	var buf bytes.Buffer
	m := newTestManager(t, repo, WithLogger(logging.New("info", "text", &buf)))

	assert.True(t, m.Degraded())
	assert.Nil(t, m.Current())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), ErrStorageUnavailable.Error())

	// Memory-only mode keeps serving without writing identities.
	_, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	assert.Equal(t, "Ann", m.Current().Name)
	assert.Zero(t, repo.writes())
}

func TestInit_CancelledContext(t *testing.T) {
	m := New(client.NewMockClient(0, logging.Nop()), newSpyRepo())
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.Init(ctx), context.Canceled)
	select {
	case <-m.Ready():
	default:
		t.Fatal("Ready must close even when Init fails")
	}
}

func TestUpdateProfile_NotAuthenticated(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)

	_, err := m.UpdateProfile(context.Background(), models.ProfileUpdate{Name: "X", Email: "y@z.com"})
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, repo.writes())
	assert.Nil(t, repo.stored(t))
}

func TestUpdateProfile_ChangesOnlyNameAndEmail(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)

	_, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	before, err := m.UpdateProfile(context.Background(), models.ProfileUpdate{
		Name: "Ann", Email: "a@b.com", Bio: strPtr("likes maths"), Interests: strPtr("algebra"),
	})
	require.NoError(t, err)

	after, err := m.UpdateProfile(context.Background(), models.ProfileUpdate{Name: "X", Email: "y@z.com"})
	require.NoError(t, err)

	want := *before
	want.Name = "X"
	want.Email = "y@z.com"
	if diff := cmp.Diff(&want, after); diff != "" {
		t.Errorf("update mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, after, m.Current())
	assert.Equal(t, after, repo.stored(t))
}

func TestUpdateProfile_ValidationLeavesStateUnchanged(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)

	_, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	writes := repo.writes()
	before := m.Current()

	_, err = m.UpdateProfile(context.Background(), models.ProfileUpdate{Name: " ", Email: "y@z.com"})

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	_, ok := verr.Message("name")
	assert.True(t, ok)
	assert.Equal(t, before, m.Current())
	assert.Equal(t, writes, repo.writes())
}

func TestSignUpThenLogIn_OverwritesRecord(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)

	_, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	_, err = m.UpdateProfile(context.Background(), models.ProfileUpdate{Name: "Ann", Email: "a@b.com", Bio: strPtr("bio")})
	require.NoError(t, err)
	signedUp := m.Current()

	_, err = m.LogIn(context.Background(), "c@d.com", []byte("pw2"))
	require.NoError(t, err)

	cur := m.Current()
	assert.Equal(t, "c@d.com", cur.Email)
	assert.Equal(t, "c", cur.Name)
	assert.Empty(t, cur.Bio)
	assert.NotEqual(t, signedUp.ID, cur.ID)
	assert.Equal(t, cur, repo.stored(t))
}

func TestLogIn_DerivesMissingName(t *testing.T) {
	gc := newGateClient(false)
	gc.loginName = strPtr("")
	m := New(gc, newSpyRepo())
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Init(context.Background()))

	id, err := m.LogIn(context.Background(), "@example.com", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "@example.com", id.Name)
}

func TestResetPassword_DoesNotTouchState(t *testing.T) {
	repo := newSpyRepo()
	var buf bytes.Buffer
	m := New(client.NewMockClient(0, logging.New("info", "text", &buf)), repo)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Init(context.Background()))

	require.NoError(t, m.ResetPassword(context.Background(), "a@b.com"))
	assert.Nil(t, m.Current())
	assert.Zero(t, repo.writes())
	assert.Contains(t, buf.String(), "password reset notification sent")

	require.ErrorIs(t, m.ResetPassword(context.Background(), " "), models.ErrValidation)
}

func TestStorageWriteFailure_DegradesButSucceeds(t *testing.T) {
	repo := newSpyRepo()
	repo.setErr = errDiskFull
	m := newTestManager(t, repo)
	sub := m.Subscribe(context.Background())

	id, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	assert.Equal(t, id, m.Current())
	assert.True(t, m.Degraded())

	ev := receive(t, sub)
	assert.True(t, ev.Degraded)
	assert.Equal(t, ReasonSignUp, ev.Reason)

	assert.Nil(t, repo.stored(t))

	// Identities are not written again once degraded; log-out still clears.
	require.NoError(t, m.LogOut(context.Background()))
	_, err = m.LogIn(context.Background(), "c@d.com", []byte("x"))
	require.NoError(t, err)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 1, repo.sets)
	assert.Equal(t, 2, repo.deletes)
}

func TestDegraded_LoggedOutUserIsNotRestored(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)
	_, err := m.LogIn(context.Background(), "a@b.com", []byte("x"))
	require.NoError(t, err)

	repo.mu.Lock()
	repo.setErr = errDiskFull
	repo.mu.Unlock()

	_, err = m.LogIn(context.Background(), "c@d.com", []byte("x"))
	require.NoError(t, err)
	require.True(t, m.Degraded())
	require.NoError(t, m.LogOut(context.Background()))

	restarted := newTestManager(t, repo)
	assert.Nil(t, restarted.Current())
	assert.Nil(t, repo.stored(t))
}

func TestDegraded_LogOutClearsRecordLeftBeforeFailure(t *testing.T) {
	repo := newSpyRepo()
	raw, err := models.EncodeIdentity(&models.Identity{ID: "1", Email: "a@b.com", Name: "Ann"})
	require.NoError(t, err)
	require.NoError(t, repo.inner.Set(context.Background(), DefaultKey, raw))
	repo.getErr = errDiskFull

	m := newTestManager(t, repo)
	require.True(t, m.Degraded())

	repo.mu.Lock()
	repo.getErr = nil
	repo.mu.Unlock()

	require.NoError(t, m.LogOut(context.Background()))
	assert.Nil(t, repo.stored(t))
}

func TestLogOut_StorageFailureNeverFails(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)
	_, err := m.LogIn(context.Background(), "e@f.com", []byte("x"))
	require.NoError(t, err)

	repo.mu.Lock()
	repo.delErr = errDiskFull
	repo.mu.Unlock()

	require.NoError(t, m.LogOut(context.Background()))
	assert.Nil(t, m.Current())
	assert.True(t, m.Degraded())
}

func TestSubscribe_EventsInCommitOrder(t *testing.T) {
	m := newTestManager(t, newSpyRepo())
	sub := m.Subscribe(context.Background())
	ctx := context.Background()

	_, err := m.SignUp(ctx, "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	_, err = m.LogIn(ctx, "c@d.com", []byte("pw2"))
	require.NoError(t, err)
	_, err = m.UpdateProfile(ctx, models.ProfileUpdate{Name: "Cee", Email: "c@d.com"})
	require.NoError(t, err)
	require.NoError(t, m.LogOut(ctx))

	want := []struct {
		reason Reason
		name   string
	}{
		{ReasonSignUp, "Ann"},
		{ReasonLogIn, "c"},
		{ReasonProfileUpdate, "Cee"},
		{ReasonLogOut, ""},
	}
	for _, w := range want {
		ev := receive(t, sub)
		assert.Equal(t, w.reason, ev.Reason)
		if w.name == "" {
			assert.Nil(t, ev.Identity)
			continue
		}
		require.NotNil(t, ev.Identity)
		assert.Equal(t, w.name, ev.Identity.Name)
		assert.False(t, ev.Degraded)
	}
}

func TestSubscribe_RestoreEvent(t *testing.T) {
	repo := newSpyRepo()
	seed := newTestManager(t, repo)
	_, err := seed.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)

	m := New(client.NewMockClient(0, logging.Nop()), repo)
	t.Cleanup(func() { _ = m.Close() })
	sub := m.Subscribe(context.Background())
	require.NoError(t, m.Init(context.Background()))

	ev := receive(t, sub)
	assert.Equal(t, ReasonRestore, ev.Reason)
	require.NotNil(t, ev.Identity)
	assert.Equal(t, "Ann", ev.Identity.Name)
}

func TestSubscribe_EventCarriesCopy(t *testing.T) {
	m := newTestManager(t, newSpyRepo())
	sub := m.Subscribe(context.Background())

	_, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)

	ev := receive(t, sub)
	ev.Identity.Name = "mutated"
	assert.Equal(t, "Ann", m.Current().Name)

	cur := m.Current()
	cur.Name = "mutated"
	assert.Equal(t, "Ann", m.Current().Name)
}

func TestClose_EndsSubscriptions(t *testing.T) {
	gc := newGateClient(false)
	m := New(gc, newSpyRepo())
	sub := m.Subscribe(context.Background())

	require.NoError(t, m.Close())

	_, ok := <-sub.Receive()
	assert.False(t, ok)
	gc.mu.Lock()
	defer gc.mu.Unlock()
	assert.True(t, gc.closed)
}

func TestConcurrentWrites_AppliedInArrivalOrder(t *testing.T) {
	gc := newGateClient(true)
	repo := newSpyRepo()
	m := New(gc, repo)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Init(context.Background()))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := m.LogIn(context.Background(), "first@x.com", []byte("x"))
		assert.NoError(t, err)
	}()
	require.Equal(t, "first@x.com", gc.awaitEntered(t))

	go func() {
		defer wg.Done()
		_, err := m.LogIn(context.Background(), "second@x.com", []byte("x"))
		assert.NoError(t, err)
	}()

	// The second call must not reach the backend while the first holds the slot.
	select {
	case email := <-gc.entered:
		t.Fatalf("%s entered the backend before the first write committed", email)
	case <-time.After(50 * time.Millisecond):
	}

	gc.release <- struct{}{}
	require.Equal(t, "second@x.com", gc.awaitEntered(t))
	assert.Equal(t, "first@x.com", m.Current().Email)

	gc.release <- struct{}{}
	wg.Wait()

	assert.Equal(t, "second@x.com", m.Current().Email)
	assert.Equal(t, m.Current(), repo.stored(t))
}

func TestDoubleSubmit_Collapsed(t *testing.T) {
	m, gc := newGateManager(t, newSpyRepo())
	sub := m.Subscribe(context.Background())
	held := holdSlot(t, m, gc)

	results := make(chan *models.Identity, 2)
	submit := func() {
		id, err := m.LogIn(context.Background(), "a@b.com", []byte("x"))
		assert.NoError(t, err)
		results <- id
	}
	go submit()
	settle()
	go submit()
	settle()

	gc.release <- struct{}{}
	require.NoError(t, <-held)
	require.Equal(t, "a@b.com", gc.awaitEntered(t))
	gc.release <- struct{}{}

	first, second := <-results, <-results
	assert.Equal(t, 1, gc.loginCalls())
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)

	assert.Equal(t, ReasonSignUp, receive(t, sub).Reason)
	assert.Equal(t, ReasonLogIn, receive(t, sub).Reason)
	select {
	case msg := <-sub.Receive():
		t.Fatalf("unexpected extra event: %+v", msg.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDoubleSubmit_StartedWriteIsNotJoined(t *testing.T) {
	m, gc := newGateManager(t, newSpyRepo())

	done := make(chan *models.Identity, 2)
	submit := func() {
		id, err := m.LogIn(context.Background(), "a@b.com", []byte("x"))
		assert.NoError(t, err)
		done <- id
	}
	go submit()
	gc.awaitEntered(t)
	go submit()

	gc.release <- struct{}{}
	require.Equal(t, "a@b.com", gc.awaitEntered(t))
	gc.release <- struct{}{}

	first, second := <-done, <-done
	assert.Equal(t, 2, gc.loginCalls())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestLogIn_AfterQueuedLogOutIsApplied(t *testing.T) {
	repo := newSpyRepo()
	m, gc := newGateManager(t, repo)

	firstDone := make(chan error, 1)
	go func() {
		_, err := m.LogIn(context.Background(), "a@b.com", []byte("x"))
		firstDone <- err
	}()
	gc.awaitEntered(t)

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- m.LogOut(context.Background()) }()
	settle()

	type result struct {
		id  *models.Identity
		err error
	}
	thirdDone := make(chan result, 1)
	go func() {
		id, err := m.LogIn(context.Background(), "a@b.com", []byte("x"))
		thirdDone <- result{id, err}
	}()
	settle()

	gc.release <- struct{}{}
	require.NoError(t, <-firstDone)
	require.NoError(t, <-logoutDone)
	require.Equal(t, "a@b.com", gc.awaitEntered(t))
	gc.release <- struct{}{}

	third := <-thirdDone
	require.NoError(t, third.err)
	assert.Equal(t, 2, gc.loginCalls())
	assert.Equal(t, third.id, m.Current())
	assert.Equal(t, third.id, repo.stored(t))
}

func TestSignUp_DifferentNamesAreNotCollapsed(t *testing.T) {
	m, gc := newGateManager(t, newSpyRepo())
	held := holdSlot(t, m, gc)

	names := make(map[string]chan string, 2)
	for _, name := range []string{"Ann", "Bob"} {
		ch := make(chan string, 1)
		names[name] = ch
		go func() {
			id, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), name)
			assert.NoError(t, err)
			if id != nil {
				ch <- id.Name
			} else {
				ch <- ""
			}
		}()
		settle()
	}

	gc.release <- struct{}{}
	require.NoError(t, <-held)
	for range 2 {
		require.Equal(t, "a@b.com", gc.awaitEntered(t))
		gc.release <- struct{}{}
	}

	assert.Equal(t, "Ann", <-names["Ann"])
	assert.Equal(t, "Bob", <-names["Bob"])
	assert.Equal(t, "Bob", m.Current().Name)
}

func TestLogIn_DifferentPasswordsAreNotCollapsed(t *testing.T) {
	m, gc := newGateManager(t, newSpyRepo())
	held := holdSlot(t, m, gc)

	var wg sync.WaitGroup
	for _, pw := range []string{"one", "two"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.LogIn(context.Background(), "a@b.com", []byte(pw))
			assert.NoError(t, err)
		}()
		settle()
	}

	gc.release <- struct{}{}
	require.NoError(t, <-held)
	for range 2 {
		gc.awaitEntered(t)
		gc.release <- struct{}{}
	}
	wg.Wait()
	assert.Equal(t, 2, gc.loginCalls())
}

func TestDoubleSubmit_FirstCallerCancelDoesNotAbortOthers(t *testing.T) {
	m, gc := newGateManager(t, newSpyRepo())
	held := holdSlot(t, m, gc)

	ctx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := m.LogIn(ctx, "a@b.com", []byte("x"))
		firstDone <- err
	}()
	settle()

	secondDone := make(chan *models.Identity, 1)
	go func() {
		id, err := m.LogIn(context.Background(), "a@b.com", []byte("x"))
		assert.NoError(t, err)
		secondDone <- id
	}()
	settle()

	cancel()
	require.ErrorIs(t, <-firstDone, context.Canceled)

	gc.release <- struct{}{}
	require.NoError(t, <-held)
	require.Equal(t, "a@b.com", gc.awaitEntered(t))
	gc.release <- struct{}{}

	second := <-secondDone
	require.NotNil(t, second)
	assert.Equal(t, second, m.Current())
	assert.Equal(t, 1, gc.loginCalls())
}

func TestCancel_DuringLatency(t *testing.T) {
	repo := newSpyRepo()
	m := New(client.NewMockClient(time.Hour, logging.Nop()), repo)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Init(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.SignUp(ctx, "a@b.com", []byte("pw"), "Ann")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, m.Current())
	assert.Zero(t, repo.writes())
}

func TestCancel_WhileWaitingForLock(t *testing.T) {
	gc := newGateClient(true)
	repo := newSpyRepo()
	m := New(gc, repo)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Init(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := m.LogIn(context.Background(), "first@x.com", []byte("x"))
		done <- err
	}()
	gc.awaitEntered(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.UpdateProfile(ctx, models.ProfileUpdate{Name: "X", Email: "y@z.com"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	gc.release <- struct{}{}
	require.NoError(t, <-done)
	assert.Equal(t, "first@x.com", m.Current().Email)
	assert.Equal(t, "first", m.Current().Name)
}

func TestBackendError_LeavesStateUnchanged(t *testing.T) {
	repo := newSpyRepo()
	m := newTestManager(t, repo)
	_, err := m.SignUp(context.Background(), "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	before := m.Current()
	writes := repo.writes()

	require.NoError(t, m.client.Close())
	_, err = m.LogIn(context.Background(), "c@d.com", []byte("x"))
	require.ErrorIs(t, err, client.ErrClosed)
	assert.True(t, errors.Is(err, client.ErrClosed))
	assert.Equal(t, before, m.Current())
	assert.Equal(t, writes, repo.writes())
}

func TestTracing_SpanPerOperation(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	m := newTestManager(t, newSpyRepo(), WithTracer(tp.Tracer("test")))
	ctx := context.Background()

	_, err := m.SignUp(ctx, "a@b.com", []byte("pw"), "Ann")
	require.NoError(t, err)
	_, err = m.UpdateProfile(ctx, models.ProfileUpdate{Name: "", Email: "a@b.com"})
	require.Error(t, err)
	require.NoError(t, m.LogOut(ctx))

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"session.Init", "session.SignUp", "session.UpdateProfile", "session.LogOut"}, names)

	failed := sr.Ended()[2]
	assert.Equal(t, "Error", failed.Status().Code.String())
}
