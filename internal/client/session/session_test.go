package session

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwestra/aurora/internal/models"
)

// fakeAPI blocks Me until release is closed, counting calls.
type fakeAPI struct {
	calls   int32
	release chan struct{}
	user    *models.User
	err     error
}

func (f *fakeAPI) Me(_ context.Context) (*models.User, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.release != nil {
		<-f.release
	}
	return f.user, f.err
}

func TestRefresh_CoalescesConcurrentCallers(t *testing.T) {
	api := &fakeAPI{
		release: make(chan struct{}),
		user:    &models.User{Email: "alice@example.com"},
	}
	c := New(api)

	const n = 10
	var wg sync.WaitGroup
	started := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			_ = c.Refresh(context.Background(), false)
		}()
	}
	for i := 0; i < n; i++ {
		<-started
	}
	close(api.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&api.calls),
		"all callers must attach to one in-flight fetch")
	require.NotNil(t, c.User())
	assert.Equal(t, "alice@example.com", c.User().Email)
	assert.True(t, c.IsLoggedIn())
}

func TestRefresh_FailureClearsUser(t *testing.T) {
	api := &fakeAPI{user: &models.User{Email: "alice@example.com"}}
	c := New(api)

	require.NoError(t, c.Refresh(context.Background(), false))
	require.True(t, c.IsLoggedIn())

	api.user = nil
	api.err = errors.New("boom")

	// Swallowed without throwOnError, but the snapshot is still cleared.
	assert.NoError(t, c.Refresh(context.Background(), false))
	assert.False(t, c.IsLoggedIn())

	assert.Error(t, c.Refresh(context.Background(), true))
}

func TestRefresh_HandleClearedAfterFailure(t *testing.T) {
	api := &fakeAPI{err: errors.New("boom")}
	c := New(api)

	_ = c.Refresh(context.Background(), false)

	// A later call must start a fresh fetch, not stay stuck.
	api.err = nil
	api.user = &models.User{Email: "alice@example.com"}
	require.NoError(t, c.Refresh(context.Background(), true))
	assert.True(t, c.IsLoggedIn())
	assert.Equal(t, int32(2), atomic.LoadInt32(&api.calls))
}

func TestBootstrap(t *testing.T) {
	api := &fakeAPI{err: errors.New("not authenticated")}
	c := New(api)

	assert.False(t, c.IsLoading())
	c.Bootstrap(context.Background())

	// Anonymous first load: no user, no error, loading cleared.
	assert.False(t, c.IsLoading())
	assert.False(t, c.IsLoggedIn())
}

func TestBootstrap_LoadingVisibleDuringRefresh(t *testing.T) {
	api := &fakeAPI{
		release: make(chan struct{}),
		user:    &models.User{Email: "alice@example.com"},
	}
	c := New(api)

	done := make(chan struct{})
	go func() {
		c.Bootstrap(context.Background())
		close(done)
	}()

	// Wait until the fetch is in flight, then observe the flag.
	for atomic.LoadInt32(&api.calls) == 0 {
		runtime.Gosched()
	}
	assert.True(t, c.IsLoading())

	close(api.release)
	<-done
	assert.False(t, c.IsLoading())
	assert.True(t, c.IsLoggedIn())
}

func TestSetUser(t *testing.T) {
	c := New(&fakeAPI{})

	c.SetUser(&models.User{Email: "alice@example.com"})
	assert.True(t, c.IsLoggedIn())

	c.SetUser(nil)
	assert.False(t, c.IsLoggedIn())
	assert.Nil(t, c.User())
}
