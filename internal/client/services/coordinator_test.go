package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/usertheme/internal/client/cache"
	"github.com/dmitrijs2005/usertheme/internal/client/client"
	"github.com/dmitrijs2005/usertheme/internal/client/dom"
	"github.com/dmitrijs2005/usertheme/internal/client/models"
	"github.com/dmitrijs2005/usertheme/internal/common"
	"github.com/dmitrijs2005/usertheme/internal/cryptox"
	"github.com/dmitrijs2005/usertheme/internal/logging"
	"github.com/dmitrijs2005/usertheme/internal/validator"
)

const (
	cssA = ".user-theme { color: red; }"
	cssB = ":root { --accent: blue; }"
)

type fakeClient struct {
	mu sync.Mutex

	info    *models.UserInfo
	infoErr error

	versions    []string
	versionsErr error

	// css by content URL
	css      map[string]string
	fetchErr error
	// gates, when set, block FetchCSS for that URL until closed
	gates   map[string]chan struct{}
	started chan string
	fetched []string

	setCurrentErr error
	setCalls      []*string
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{css: map[string]string{}, gates: map[string]chan struct{}{}}
}

func (f *fakeClient) UserInfo(context.Context) (*models.UserInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeClient) ListVersions(context.Context) ([]string, error) {
	return f.versions, f.versionsErr
}

func (f *fakeClient) FetchCSS(ctx context.Context, contentURL string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, contentURL)
	gate := f.gates[contentURL]
	css, ok := f.css[contentURL]
	err := f.fetchErr
	f.mu.Unlock()

	if f.started != nil {
		f.started <- contentURL
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", client.ErrNotFound
	}
	return css, nil
}

func (f *fakeClient) SetCurrent(_ context.Context, version *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, version)
	return f.setCurrentErr
}

func (f *fakeClient) Submit(context.Context, string, string) (*models.SubmitResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) Validate(context.Context, string) (*validator.Result, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) PageShell(context.Context) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeClient) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

type fixture struct {
	client *fakeClient
	cache  *cache.Cache
	page   *dom.Document
	tc     *ThemeCoordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPage(t, dom.New())
}

func newFixtureWithPage(t *testing.T, page *dom.Document) *fixture {
	t.Helper()
	fc := newFakeClient()
	c := cache.New(nil, logging.NewNop())
	tc := NewThemeCoordinator(fc, c, page, logging.NewNop())
	tc.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return &fixture{client: fc, cache: c, page: page, tc: tc}
}

func cssURL(v string) string { return common.ContentURL(v) }

func TestApply_FromNetwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.css[cssURL("alice-a")] = cssA

	require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-a", ExpectedHash: cryptox.DigestString(cssA)}))

	snap := f.tc.Snapshot()
	assert.Equal(t, StateApplied, snap.State)
	assert.Equal(t, "alice-a", snap.CurrentVersion)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)

	css, ok := f.page.StyleText("user-theme-alice-a")
	require.True(t, ok)
	assert.Equal(t, cssA, css)
	assert.True(t, f.page.HasBodyClass("user-theme"))

	rec, ok := f.cache.Get(ctx, "alice-a")
	require.True(t, ok)
	assert.Equal(t, cryptox.DigestString(cssA), rec.Hash)
	assert.Equal(t, "alice-a", f.cache.CurrentVersion(ctx))
}

func TestApply_BlankVersion(t *testing.T) {
	f := newFixture(t)
	err := f.tc.Apply(context.Background(), ApplyRequest{Version: "  "})
	require.ErrorIs(t, err, common.ErrorInvalidVersion)
	assert.Equal(t, StateIdle, f.tc.Snapshot().State)
}

func TestApply_HashMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.css[cssURL("alice-a")] = cssA

	err := f.tc.Apply(ctx, ApplyRequest{Version: "alice-a", ExpectedHash: cryptox.DigestString(cssB)})
	require.ErrorIs(t, err, ErrHashMismatch)

	snap := f.tc.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.ErrorIs(t, snap.Err, ErrHashMismatch)
	assert.False(t, snap.Loading)
	assert.Empty(t, f.page.ManagedStyleIDs())
	_, ok := f.cache.Get(ctx, "alice-a")
	assert.False(t, ok)
}

func TestApply_NetworkBytesFailValidation(t *testing.T) {
	f := newFixture(t)
	f.client.css[cssURL("alice-a")] = "body { position: fixed; }"

	err := f.tc.Apply(context.Background(), ApplyRequest{Version: "alice-a"})
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, f.page.ManagedStyleIDs())
}

func TestApply_TransportError(t *testing.T) {
	f := newFixture(t)
	f.client.fetchErr = client.ErrUnavailable

	err := f.tc.Apply(context.Background(), ApplyRequest{Version: "alice-a"})
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, StateFailed, f.tc.Snapshot().State)
}

func TestApply_UsesContentURL(t *testing.T) {
	f := newFixture(t)
	f.client.css["/cdn/alice-a.css"] = cssA

	require.NoError(t, f.tc.Apply(context.Background(), ApplyRequest{Version: "alice-a", ContentURL: "/cdn/alice-a.css"}))
	assert.Equal(t, []string{"/cdn/alice-a.css"}, f.client.fetched)
}

func shellWith(t *testing.T, version, css string) *dom.Document {
	t.Helper()
	page, err := dom.ParseString(`<html><head><link id="official-theme" rel="stylesheet" href="/o.css">` +
		`<style id="user-theme-` + version + `" data-managed-by="user-theme" data-version="` + version + `">` + css +
		`</style></head><body class="user-theme"></body></html>`)
	require.NoError(t, err)
	return page
}

func TestApply_PrefersServerRenderedStyle(t *testing.T) {
	f := newFixtureWithPage(t, shellWith(t, "alice-a", cssA))
	ctx := context.Background()

	require.NoError(t, f.tc.Apply(ctx, ApplyRequest{
		Version:              "alice-a",
		ExpectedHash:         cryptox.DigestString(cssA),
		PreferServerRendered: true,
	}))

	assert.Zero(t, f.client.fetchCount())
	assert.Equal(t, []string{"user-theme-alice-a"}, f.page.ManagedStyleIDs())
	_, ok := f.cache.Get(ctx, "alice-a")
	assert.True(t, ok, "shell bytes are cached")
}

func TestApply_ServerRenderedNeedsExpectedHash(t *testing.T) {
	f := newFixtureWithPage(t, shellWith(t, "alice-a", cssA))
	f.client.css[cssURL("alice-a")] = cssA

	require.NoError(t, f.tc.Apply(context.Background(), ApplyRequest{Version: "alice-a", PreferServerRendered: true}))
	assert.Equal(t, 1, f.client.fetchCount())
}

func TestApply_ServerRenderedHashMismatchFallsThrough(t *testing.T) {
	f := newFixtureWithPage(t, shellWith(t, "alice-a", cssB))
	f.client.css[cssURL("alice-a")] = cssA

	require.NoError(t, f.tc.Apply(context.Background(), ApplyRequest{
		Version:              "alice-a",
		ExpectedHash:         cryptox.DigestString(cssA),
		PreferServerRendered: true,
	}))
	assert.Equal(t, 1, f.client.fetchCount())
	css, _ := f.page.InlineStyle("alice-a")
	assert.Equal(t, cssA, css)
}

func TestApply_CacheHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.Put(ctx, &models.Record{Version: "alice-a", CSS: cssA, Hash: cryptox.DigestString(cssA), CreatedAt: time.UnixMilli(1)})

	require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-a"}))
	assert.Zero(t, f.client.fetchCount())
	assert.Equal(t, "alice-a", f.tc.Snapshot().CurrentVersion)
}

func TestApply_CacheRejectedWhenCorruptOrUnexpected(t *testing.T) {
	ctx := context.Background()

	t.Run("stored hash does not match bytes", func(t *testing.T) {
		f := newFixture(t)
		f.cache.Put(ctx, &models.Record{Version: "alice-a", CSS: cssA, Hash: cryptox.DigestString(cssB)})
		f.client.css[cssURL("alice-a")] = cssA

		require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-a"}))
		assert.Equal(t, 1, f.client.fetchCount())
		rec, _ := f.cache.Get(ctx, "alice-a")
		assert.Equal(t, cryptox.DigestString(cssA), rec.Hash, "repaired from network")
	})

	t.Run("different expected hash", func(t *testing.T) {
		f := newFixture(t)
		f.cache.Put(ctx, &models.Record{Version: "alice-a", CSS: cssB, Hash: cryptox.DigestString(cssB)})
		f.client.css[cssURL("alice-a")] = cssA

		require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-a", ExpectedHash: cryptox.DigestString(cssA)}))
		assert.Equal(t, 1, f.client.fetchCount())
	})

	t.Run("cached bytes no longer valid", func(t *testing.T) {
		f := newFixture(t)
		bad := "html { color: red; }"
		f.cache.Put(ctx, &models.Record{Version: "alice-a", CSS: bad, Hash: cryptox.DigestString(bad)})
		f.client.css[cssURL("alice-a")] = cssA

		require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-a"}))
		assert.Equal(t, 1, f.client.fetchCount())
	})
}

func TestApply_RemovesPreviousStyle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.css[cssURL("alice-a")] = cssA
	f.client.css[cssURL("alice-b")] = cssB

	require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-a"}))
	require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-b"}))

	assert.Equal(t, []string{"user-theme-alice-b"}, f.page.ManagedStyleIDs())
}

func TestApply_SupersededAttemptIsDiscarded(t *testing.T) {
	for _, slowFails := range []bool{false, true} {
		name := "slow success"
		if slowFails {
			name = "slow failure"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			gate := make(chan struct{})
			f.client.gates[cssURL("alice-a")] = gate
			f.client.started = make(chan string, 2)
			if slowFails {
				f.client.css[cssURL("alice-a")] = "body { color: red; }"
			} else {
				f.client.css[cssURL("alice-a")] = cssA
			}
			f.client.css[cssURL("alice-b")] = cssB

			done := make(chan error, 1)
			go func() { done <- f.tc.Apply(ctx, ApplyRequest{Version: "alice-a"}) }()
			require.Equal(t, cssURL("alice-a"), <-f.client.started)

			require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-b"}))
			<-f.client.started

			close(gate)
			require.NoError(t, <-done, "superseded attempt reports nothing")

			snap := f.tc.Snapshot()
			assert.Equal(t, StateApplied, snap.State)
			assert.Equal(t, "alice-b", snap.CurrentVersion)
			assert.NoError(t, snap.Err)
			assert.Equal(t, []string{"user-theme-alice-b"}, f.page.ManagedStyleIDs())
			assert.Equal(t, "alice-b", f.cache.CurrentVersion(ctx))
		})
	}
}

func TestRefresh_AppliesServerTheme(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.info = &models.UserInfo{
		UserID:         "alice",
		HasCustomTheme: true,
		Version:        "alice-a",
		Hash:           cryptox.DigestString(cssA),
		ContentURL:     cssURL("alice-a"),
	}
	f.client.versions = []string{"alice-b", "alice-a"}
	f.client.css[cssURL("alice-a")] = cssA
	f.cache.Put(ctx, &models.Record{Version: "alice-local", CSS: cssB, Hash: cryptox.DigestString(cssB)})

	require.NoError(t, f.tc.Refresh(ctx))

	snap := f.tc.Snapshot()
	assert.Equal(t, "alice-a", snap.CurrentVersion)
	assert.Equal(t, []string{"alice-a", "alice-b", "alice-local"}, snap.AvailableVersions)
}

func TestRefresh_ToleratesVersionListFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.info = &models.UserInfo{UserID: "alice"}
	f.client.versionsErr = client.ErrUnavailable
	f.cache.Put(ctx, &models.Record{Version: "alice-local", CSS: cssB, Hash: cryptox.DigestString(cssB)})

	require.NoError(t, f.tc.Refresh(ctx))
	assert.Equal(t, []string{"alice-local"}, f.tc.Snapshot().AvailableVersions)
}

func TestRefresh_NoCustomThemeClearsPage(t *testing.T) {
	f := newFixtureWithPage(t, shellWith(t, "alice-a", cssA))
	ctx := context.Background()
	f.cache.SetCurrentVersion(ctx, "alice-a")
	f.client.info = &models.UserInfo{UserID: "alice", HasCustomTheme: false}

	require.NoError(t, f.tc.Refresh(ctx))

	assert.Empty(t, f.page.ManagedStyleIDs())
	assert.False(t, f.page.HasBodyClass("user-theme"))
	assert.Empty(t, f.cache.CurrentVersion(ctx))
	assert.Empty(t, f.tc.Snapshot().CurrentVersion)
	assert.Contains(t, f.page.String(), `id="official-theme"`)
}

func TestRefresh_UserInfoError(t *testing.T) {
	f := newFixture(t)
	f.client.infoErr = client.ErrUnauthorized

	err := f.tc.Refresh(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestSwitchTheme(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.css[cssURL("alice-a")] = cssA
	f.client.css[cssURL("alice-b")] = cssB
	f.client.versions = []string{"alice-a", "alice-b"}

	require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-a"}))
	require.NoError(t, f.tc.SwitchTheme(ctx, "  alice-b "))

	snap := f.tc.Snapshot()
	assert.Equal(t, "alice-b", snap.CurrentVersion)
	assert.Equal(t, []string{"alice-a", "alice-b"}, snap.AvailableVersions)
	assert.Equal(t, []string{"user-theme-alice-b"}, f.page.ManagedStyleIDs())
	require.Len(t, f.client.setCalls, 1)
	require.NotNil(t, f.client.setCalls[0])
	assert.Equal(t, "alice-b", *f.client.setCalls[0])
}

func TestSwitchTheme_BlankIsIgnored(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tc.SwitchTheme(context.Background(), "   "))
	assert.Empty(t, f.client.setCalls)
	assert.Equal(t, StateIdle, f.tc.Snapshot().State)
}

func TestSwitchTheme_ServerUpdateFailureIsTolerated(t *testing.T) {
	f := newFixture(t)
	f.client.css[cssURL("alice-a")] = cssA
	f.client.setCurrentErr = client.ErrUnavailable

	require.NoError(t, f.tc.SwitchTheme(context.Background(), "alice-a"))
	assert.Equal(t, "alice-a", f.tc.Snapshot().CurrentVersion)
}

func TestSwitchTheme_ApplyFailureSkipsServerUpdate(t *testing.T) {
	f := newFixture(t)

	err := f.tc.SwitchTheme(context.Background(), "alice-missing")
	require.ErrorIs(t, err, client.ErrNotFound)
	assert.Empty(t, f.client.setCalls)
}

func TestRevertToOfficial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.css[cssURL("alice-a")] = cssA
	require.NoError(t, f.tc.Apply(ctx, ApplyRequest{Version: "alice-a"}))

	f.client.setCurrentErr = errors.New("offline")
	require.NoError(t, f.tc.RevertToOfficial(ctx))

	assert.Empty(t, f.page.ManagedStyleIDs())
	assert.False(t, f.page.HasBodyClass("user-theme"))
	assert.Empty(t, f.cache.CurrentVersion(ctx))
	assert.Empty(t, f.tc.Snapshot().CurrentVersion)
	require.Len(t, f.client.setCalls, 1)
	assert.Nil(t, f.client.setCalls[0])

	_, ok := f.cache.Get(ctx, "alice-a")
	assert.True(t, ok, "records stay cached")
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.Put(ctx, &models.Record{Version: "old", CSS: cssA, Hash: "x", CreatedAt: time.UnixMilli(1)})
	f.cache.Put(ctx, &models.Record{Version: "new", CSS: cssB, Hash: "y", CreatedAt: time.UnixMilli(2)})

	h := f.tc.History(ctx)
	require.Len(t, h, 2)
	assert.Equal(t, "new", h[0].Version)
}
