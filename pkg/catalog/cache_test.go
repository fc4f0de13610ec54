package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cperrin88/brewse/pkg/download/mocks"
	"github.com/cperrin88/brewse/pkg/errors"
	"github.com/cperrin88/brewse/pkg/model"
)

type stubChecker struct {
	fresh bool
}

func (s *stubChecker) Fresh(context.Context, string, string) bool {
	return s.fresh
}

func testURLs() map[Source]string {
	return map[Source]string{
		SourceFormula: "https://example.invalid/formula.json",
		SourceCask:    "https://example.invalid/cask.json",
	}
}

func writeArtifact(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCacheGetDownloadsParsesAndCaches(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Download(gomock.Any(), "https://example.invalid/formula.json", filepath.Join(dir, "formula.json"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, dest string, _ model.ProgressFunc) error {
			writeArtifact(t, dest, formulaJSON)
			return nil
		}).
		Times(1)

	cache := New(fetcher, &stubChecker{fresh: false}, dir, testURLs())

	cat, err := cache.Get(context.Background(), SourceFormula, nil)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	assert.Equal(t, "git", cat[0].Name)

	// Second call is served from memory without another download.
	again, err := cache.Get(context.Background(), SourceFormula, nil)
	require.NoError(t, err)
	assert.Equal(t, cat, again)
}

func TestCacheFreshArtifactSkipsDownload(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	writeArtifact(t, filepath.Join(dir, "cask.json"), caskJSON)

	// No Download expectation: a fresh artifact must be parsed in place.
	cache := New(mocks.NewMockFetcher(ctrl), &stubChecker{fresh: true}, dir, testURLs())

	cat, err := cache.Get(context.Background(), SourceCask, nil)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	assert.Equal(t, model.KindCask, cat[0].Kind)
}

func TestCacheConcurrentGetsShareOneDownload(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	release := make(chan struct{})

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, dest string, _ model.ProgressFunc) error {
			<-release
			writeArtifact(t, dest, formulaJSON)
			return nil
		}).
		Times(1)

	cache := New(fetcher, &stubChecker{fresh: false}, dir, testURLs())

	const callers = 4
	results := make([]model.Catalog, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background(), SourceFormula, nil)
		}(i)
	}

	// Let every caller attach to the in-flight fetch before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 2)
	}
}

func TestCacheRefreshBypassesFreshness(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	writeArtifact(t, filepath.Join(dir, "formula.json"), formulaJSON)

	updated := `[{"name": "git", "versions": {"stable": "3.0.0"}}]`
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, dest string, _ model.ProgressFunc) error {
			writeArtifact(t, dest, updated)
			return nil
		}).
		Times(1)

	// The checker says fresh, so a plain Get never downloads.
	cache := New(fetcher, &stubChecker{fresh: true}, dir, testURLs())

	cat, err := cache.Get(context.Background(), SourceFormula, nil)
	require.NoError(t, err)
	require.Len(t, cat, 2)

	cat, err = cache.Refresh(context.Background(), SourceFormula, nil)
	require.NoError(t, err)
	require.Len(t, cat, 1)
	assert.Equal(t, "3.0.0", cat[0].Version)

	// The refreshed catalog replaced the in-memory one.
	cat, err = cache.Get(context.Background(), SourceFormula, nil)
	require.NoError(t, err)
	require.Len(t, cat, 1)
}

func TestCacheParseFailureDeletesArtifact(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	artifact := filepath.Join(dir, "formula.json")

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, dest string, _ model.ProgressFunc) error {
			writeArtifact(t, dest, `[{"name": "git", "desc": truncated`)
			return nil
		}).
		Times(1)

	cache := New(fetcher, &stubChecker{fresh: false}, dir, testURLs())

	_, err := cache.Get(context.Background(), SourceFormula, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParse)

	_, statErr := os.Stat(artifact)
	assert.True(t, os.IsNotExist(statErr), "corrupted artifact must be removed")
}

func TestCacheUnknownSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := New(mocks.NewMockFetcher(ctrl), &stubChecker{}, t.TempDir(), testURLs())

	_, err := cache.Get(context.Background(), Source("bottles"), nil)
	assert.ErrorIs(t, err, errors.ErrSourceUnknown)

	_, err = cache.Refresh(context.Background(), Source("bottles"), nil)
	assert.ErrorIs(t, err, errors.ErrSourceUnknown)
}

func TestCacheCanceledCallerAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	fetchDone := make(chan struct{})

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, _ model.ProgressFunc) error {
			defer close(fetchDone)
			// Block until the detached fetch context is torn down.
			<-ctx.Done()
			return errors.Wrap(ctx.Err(), "download aborted")
		}).
		Times(1)

	cache := New(fetcher, &stubChecker{fresh: false}, dir, testURLs())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := cache.Get(ctx, SourceFormula, nil)
	require.Error(t, err)
	assert.True(t, errors.IsAborted(err))

	// The last waiter leaving cancels the underlying fetch.
	select {
	case <-fetchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("underlying fetch was not canceled after all waiters left")
	}
}

func TestCacheReturnsClones(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	writeArtifact(t, filepath.Join(dir, "formula.json"), formulaJSON)

	cache := New(mocks.NewMockFetcher(ctrl), &stubChecker{fresh: true}, dir, testURLs())

	first, err := cache.Get(context.Background(), SourceFormula, nil)
	require.NoError(t, err)
	first[0].Name = "mutated"
	first[0].Dependencies[0] = "mutated"

	second, err := cache.Get(context.Background(), SourceFormula, nil)
	require.NoError(t, err)
	assert.Equal(t, "git", second[0].Name)
	assert.Equal(t, "gettext", second[0].Dependencies[0])
}

func TestCacheProgressPhases(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Download(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, dest string, onProgress model.ProgressFunc) error {
			onProgress(model.Progress{Phase: model.PhaseDownloading, BytesDone: 10, BytesTotal: 20})
			writeArtifact(t, dest, formulaJSON)
			// The fetcher's own terminal report must not leak past the cache.
			onProgress(model.Progress{Phase: model.PhaseComplete, BytesDone: 20, BytesTotal: 20})
			return nil
		}).
		Times(1)

	cache := New(fetcher, &stubChecker{fresh: false}, dir, testURLs())

	var phases []model.Phase
	var final model.Progress
	_, err := cache.Get(context.Background(), SourceFormula, func(p model.Progress) {
		phases = append(phases, p.Phase)
		final = p
	})
	require.NoError(t, err)

	require.NotEmpty(t, phases)
	assert.Contains(t, phases, model.PhaseDownloading)
	assert.Equal(t, model.PhaseComplete, final.Phase)
	assert.Equal(t, 2, final.ItemsTotal)
	for _, ph := range phases[:len(phases)-1] {
		assert.Less(t, ph, model.PhaseComplete)
	}
}
