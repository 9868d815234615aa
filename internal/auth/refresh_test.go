package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRefreshManager_DeduplicatesConcurrentRefreshes(t *testing.T) {
	m := NewRefreshManager(5*time.Second, zap.NewNop())

	var executions int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(ctx context.Context) (*Session, error) {
		atomic.AddInt32(&executions, 1)
		close(started)
		<-release
		return &Session{AccessToken: "tok-1"}, nil
	}

	leaderDone := make(chan struct{})
	var leaderSession *Session
	go func() {
		defer close(leaderDone)
		leaderSession, _ = m.Refresh(context.Background(), "user-1", fn)
	}()
	<-started

	// Joiners arriving while the leader is in flight share its result and
	// never run their own fn.
	const joiners = 8
	var wg sync.WaitGroup
	results := make([]*Session, joiners)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Refresh(context.Background(), "user-1", func(ctx context.Context) (*Session, error) {
				t.Error("joiner executed its own refresh")
				return nil, nil
			})
			require.NoError(t, err)
			results[i] = s
		}(i)
	}

	// Give joiners a moment to register on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	<-leaderDone
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&executions))
	require.NotNil(t, leaderSession)
	for _, s := range results {
		require.NotNil(t, s)
		assert.Equal(t, "tok-1", s.AccessToken)
	}
}

func TestRefreshManager_MinIntervalReturnsLastSession(t *testing.T) {
	m := NewRefreshManager(5*time.Second, zap.NewNop())
	current := time.Now()
	m.now = func() time.Time { return current }

	var executions int
	fn := func(ctx context.Context) (*Session, error) {
		executions++
		return &Session{AccessToken: "tok-1"}, nil
	}

	first, err := m.Refresh(context.Background(), "user-1", fn)
	require.NoError(t, err)

	// Within the interval: cached session, no upstream call.
	current = current.Add(3 * time.Second)
	second, err := m.Refresh(context.Background(), "user-1", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, executions)
	assert.Same(t, first, second)

	// Past the interval: refresh executes again.
	current = current.Add(3 * time.Second)
	_, err = m.Refresh(context.Background(), "user-1", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, executions)
}

func TestRefreshManager_FailureIsNotCached(t *testing.T) {
	m := NewRefreshManager(5*time.Second, zap.NewNop())

	boom := errors.New("provider down")
	_, err := m.Refresh(context.Background(), "user-1", func(ctx context.Context) (*Session, error) {
		return nil, boom
	})
	require.Error(t, err)

	// The failure must not start a throttle window; the retry goes upstream.
	var executions int
	s, err := m.Refresh(context.Background(), "user-1", func(ctx context.Context) (*Session, error) {
		executions++
		return &Session{AccessToken: "tok-2"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, executions)
	assert.Equal(t, "tok-2", s.AccessToken)
}

func TestRefreshManager_ScopesAreIndependent(t *testing.T) {
	m := NewRefreshManager(5*time.Second, zap.NewNop())

	var executions int32
	fn := func(ctx context.Context) (*Session, error) {
		atomic.AddInt32(&executions, 1)
		return &Session{AccessToken: "tok"}, nil
	}

	_, err := m.Refresh(context.Background(), "user-1", fn)
	require.NoError(t, err)
	_, err = m.Refresh(context.Background(), "user-2", fn)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&executions))
}

func TestRefreshManager_JoinerHonorsContext(t *testing.T) {
	m := NewRefreshManager(5*time.Second, zap.NewNop())

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go m.Refresh(context.Background(), "user-1", func(ctx context.Context) (*Session, error) {
		close(started)
		<-release
		return &Session{}, nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Refresh(ctx, "user-1", func(ctx context.Context) (*Session, error) {
		return &Session{}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
