package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/mocks"
)

func newManager(t *testing.T, l browser.Launcher) *browser.Manager {
	t.Helper()
	return browser.NewManager(l, time.Second, zaptest.NewLogger(t))
}

func TestManager_AcquireReusesLiveHandle(t *testing.T) {
	page := mocks.NewFakePage()
	launcher := new(mocks.MockLauncher)
	launcher.On("Launch", mock.Anything).Return(page, nil).Once()

	m := newManager(t, launcher)
	ctx := context.Background()

	h1, err := m.Acquire(ctx)
	require.NoError(t, err)
	h2, err := m.Acquire(ctx)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, h1.Generation)
	assert.Equal(t, 1, m.Generation())
	launcher.AssertExpectations(t)
}

func TestManager_DeadHandleIsReplaced(t *testing.T) {
	first := mocks.NewFakePage()
	second := mocks.NewFakePage()
	launcher := new(mocks.MockLauncher)
	launcher.On("Launch", mock.Anything).Return(first, nil).Once()
	launcher.On("Launch", mock.Anything).Return(second, nil).Once()

	m := newManager(t, launcher)
	ctx := context.Background()

	h1, err := m.Acquire(ctx)
	require.NoError(t, err)

	// Simulates the window being closed out from under the server.
	first.Kill()

	h2, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, h1.ID, h2.ID, "a dead handle must be replaced by a new identity")
	assert.Equal(t, 2, h2.Generation)
	assert.Same(t, second, h2.Page())
	assert.Equal(t, 1, first.CloseCount(), "the dead page is closed best-effort")
	launcher.AssertExpectations(t)
}

func TestManager_LaunchFailure(t *testing.T) {
	launcher := new(mocks.MockLauncher)
	boom := errors.New("profile locked")
	launcher.On("Launch", mock.Anything).Return(nil, boom)

	m := newManager(t, launcher)
	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, m.Current())
	assert.Equal(t, 0, m.Generation())
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	page := mocks.NewFakePage()
	launcher := new(mocks.MockLauncher)
	launcher.On("Launch", mock.Anything).Return(page, nil)

	m := newManager(t, launcher)
	ctx := context.Background()

	require.NoError(t, m.Close(ctx), "closing before any acquire is a no-op")

	_, err := m.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx))
	require.NoError(t, m.Close(ctx))
	assert.Equal(t, 1, page.CloseCount())
	assert.Nil(t, m.Current())
}

func TestManager_AcquireAfterClose(t *testing.T) {
	launcher := new(mocks.MockLauncher)
	launcher.On("Launch", mock.Anything).Return(mocks.NewFakePage(), nil).Once()
	launcher.On("Launch", mock.Anything).Return(mocks.NewFakePage(), nil).Once()

	m := newManager(t, launcher)
	ctx := context.Background()

	h1, err := m.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx))

	h2, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, h1.ID, h2.ID)
	launcher.AssertExpectations(t)
}

func TestManager_CancelledLivenessCheckDoesNotRelaunch(t *testing.T) {
	launcher := new(mocks.MockLauncher)
	launcher.On("Launch", mock.Anything).Return(mocks.NewFakePage(), nil).Once()

	m := newManager(t, launcher)
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, m.Current(), "a cancelled caller must not tear down a healthy browser")
	launcher.AssertExpectations(t)
}
