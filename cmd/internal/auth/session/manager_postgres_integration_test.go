package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ameynaysathe/chai-backend/cmd/identity"
	"github.com/ameynaysathe/chai-backend/cmd/internal/pgtest"
)

func newPostgresHarness(t *testing.T) *harness {
	t.Helper()
	store, err := identity.NewPostgresStore(pgtest.Pool(t))
	require.NoError(t, err)
	return newHarness(t, store)
}

func TestManager_Postgres_RotationAndReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newPostgresHarness(t)

	name := "u" + strings.ToLower(ulid.Make().String())
	u := h.register(t, name, "pg-secret-1")

	res, err := h.mgr.Login(ctx, name+"@example.com", "pg-secret-1")
	require.NoError(t, err)
	assert.Equal(t, h.prints.Fingerprint(res.Refresh.Value), h.storedFingerprint(t, u.ID))

	next, err := h.mgr.Refresh(ctx, res.Refresh.Value)
	require.NoError(t, err)

	_, err = h.mgr.Refresh(ctx, res.Refresh.Value)
	require.ErrorIs(t, err, ErrTokenReused)

	require.NoError(t, h.mgr.Logout(ctx, u.ID))
	require.NoError(t, h.mgr.Logout(ctx, u.ID))
	assert.Empty(t, h.storedFingerprint(t, u.ID))

	_, err = h.mgr.Refresh(ctx, next.Refresh.Value)
	require.ErrorIs(t, err, ErrTokenReused)
}

func TestManager_Postgres_ConcurrentRefreshSingleWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newPostgresHarness(t)

	name := "u" + strings.ToLower(ulid.Make().String())
	h.register(t, name, "pg-secret-2")

	res, err := h.mgr.Login(ctx, name, "pg-secret-2")
	require.NoError(t, err)

	const n = 8
	var (
		mu     sync.Mutex
		ok     int
		reused int
		start  = make(chan struct{})
	)
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			<-start
			_, err := h.mgr.Refresh(ctx, res.Refresh.Value)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrTokenReused):
				reused++
			default:
				return err
			}
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, reused)
}
