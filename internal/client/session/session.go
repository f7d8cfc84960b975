// Package session owns the client-side authenticated-user snapshot and
// the coalesced session refresh operation shared by all callers.
package session

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mwestra/aurora/internal/models"
)

// API is the server surface the controller needs: a current-user fetch
// whose transport transparently renews expired sessions.
type API interface {
	Me(ctx context.Context) (*models.User, error)
}

// Controller is the single writer of the user snapshot and loading flag.
// All methods are safe for concurrent use.
type Controller struct {
	api API

	mu      sync.Mutex
	user    *models.User
	loading bool

	group singleflight.Group
}

// New returns a Controller bound to api.
func New(api API) *Controller {
	return &Controller{api: api}
}

// Refresh fetches the current user. Concurrent callers attach to the
// in-flight fetch and observe its outcome; the handle is cleared when it
// settles. Any failure clears the snapshot. The error is returned only
// when throwOnError is set.
func (c *Controller) Refresh(ctx context.Context, throwOnError bool) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		user, err := c.api.Me(ctx)
		if err != nil {
			c.SetUser(nil)
			return nil, err
		}
		c.SetUser(user)
		return nil, nil
	})
	if err != nil && throwOnError {
		return err
	}
	return nil
}

// Bootstrap performs the initial session check. A failed refresh is
// indistinguishable from an anonymous first load; the loading flag is
// cleared no matter how the refresh settles.
func (c *Controller) Bootstrap(ctx context.Context) {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	_ = c.Refresh(ctx, false)
}

// SetUser overrides the snapshot directly, used after login/logout to
// avoid an extra round trip.
func (c *Controller) SetUser(user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
}

// User returns the current snapshot, or nil when not authenticated.
func (c *Controller) User() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// IsLoggedIn reports whether a user snapshot is present.
func (c *Controller) IsLoggedIn() bool {
	return c.User() != nil
}

// IsLoading reports whether the bootstrap session check is in progress.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}
