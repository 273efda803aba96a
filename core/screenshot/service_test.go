package screenshot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/resource"
	logsvc "github.com/ocwc/oeweek2022/services/logger"
)

type memRepo struct {
	resource.Repository

	mu        sync.Mutex
	resources map[int]resource.Resource
	images    []resource.ResourceImage
	afterGet  func(r *resource.Resource, n int)
	gets      int
}

func (repo *memRepo) GetResource(_ context.Context, f resource.GetFilter, _ ...core.DBExecutor) (resource.Resource, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	r, ok := repo.resources[f.ID]
	if !ok {
		return resource.Resource{}, resource.ErrNotFound
	}
	repo.gets++
	if repo.afterGet != nil {
		repo.afterGet(&r, repo.gets)
	}
	return r, nil
}

func (repo *memRepo) UpdateResource(_ context.Context, r resource.Resource, _ ...core.DBExecutor) (resource.Resource, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.resources[r.ID] = r
	return r, nil
}

func (repo *memRepo) QueryResources(_ context.Context, f resource.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]resource.Resource, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var found []resource.Resource
	for _, r := range repo.resources {
		if r.Year == f.Year && r.NeedsScreenshot() && r.PostStatus != resource.PostStatusTrash {
			found = append(found, r)
		}
	}
	return found, nil
}

func (repo *memRepo) CreateImage(_ context.Context, img resource.ResourceImage, _ ...core.DBExecutor) (resource.ResourceImage, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	img.ID = len(repo.images) + 1
	repo.images = append(repo.images, img)
	return img, nil
}

type fakeCapturer struct {
	err   error
	block bool

	mu    sync.Mutex
	calls int
}

func (c *fakeCapturer) Capture(ctx context.Context, _ string, _, _ int) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	return []byte("png"), nil
}

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (s *memStore) Save(_ context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	return name, nil
}

func testConfig() *core.Config {
	return &core.Config{
		Week: core.Week{Year: 2023},
		Screenshots: core.ScreenshotConfig{
			MaxWidth:    1168,
			MaxHeight:   1752,
			LoadTimeout: 20 * time.Millisecond,
		},
	}
}

func newTestService(repo *memRepo, capturer Capturer) (*Service, *memStore) {
	store := &memStore{files: make(map[string][]byte)}
	return NewService(repo, capturer, store, logsvc.NewNopLogger(), testConfig()), store
}

func TestService_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("captured", func(t *testing.T) {
		repo := &memRepo{resources: map[int]resource.Resource{7: {ID: 7, Link: "https://example.org"}}}
		svc, store := newTestService(repo, &fakeCapturer{})

		require.NoError(t, svc.Fetch(ctx, 7))

		r := repo.resources[7]
		assert.Equal(t, resource.ScreenshotDone, r.ScreenshotStatus)
		assert.Equal(t, null.IntFrom(1), r.ImageID)
		assert.Equal(t, null.StringFrom("images/resource/screenshot_7.png"), r.ImagePath)
		assert.Equal(t, []byte("png"), store.files["images/resource/screenshot_7.png"])
	})

	t.Run("early abort", func(t *testing.T) {
		repo := &memRepo{resources: map[int]resource.Resource{
			1: {ID: 1},
			2: {ID: 2, Link: "https://example.org", ScreenshotStatus: resource.ScreenshotDone},
		}}
		capturer := &fakeCapturer{}
		svc, _ := newTestService(repo, capturer)

		require.NoError(t, svc.Fetch(ctx, 1))
		require.NoError(t, svc.Fetch(ctx, 2))
		assert.Zero(t, capturer.calls)
		assert.Empty(t, repo.images)
	})

	t.Run("image already present", func(t *testing.T) {
		repo := &memRepo{resources: map[int]resource.Resource{
			1: {ID: 1, Link: "https://example.org", ImageID: null.IntFrom(3), ScreenshotStatus: resource.ScreenshotPending},
		}}
		capturer := &fakeCapturer{}
		svc, _ := newTestService(repo, capturer)

		require.NoError(t, svc.Fetch(ctx, 1))
		assert.Zero(t, capturer.calls)
		assert.Equal(t, resource.ScreenshotDone, repo.resources[1].ScreenshotStatus)
	})

	t.Run("timeout", func(t *testing.T) {
		repo := &memRepo{resources: map[int]resource.Resource{1: {ID: 1, Link: "https://example.org"}}}
		svc, _ := newTestService(repo, &fakeCapturer{block: true})

		require.NoError(t, svc.Fetch(ctx, 1))
		assert.Equal(t, resource.ScreenshotPending, repo.resources[1].ScreenshotStatus)
		assert.Empty(t, repo.images)
	})

	t.Run("capturer timeout", func(t *testing.T) {
		repo := &memRepo{resources: map[int]resource.Resource{1: {ID: 1, Link: "https://example.org"}}}
		svc, _ := newTestService(repo, &fakeCapturer{err: errors.Wrap(ErrTimeout, "202")})

		require.NoError(t, svc.Fetch(ctx, 1))
		assert.Equal(t, resource.ScreenshotPending, repo.resources[1].ScreenshotStatus)
	})

	t.Run("capture error", func(t *testing.T) {
		repo := &memRepo{resources: map[int]resource.Resource{1: {ID: 1, Link: "https://example.org"}}}
		svc, _ := newTestService(repo, &fakeCapturer{err: errors.New("boom")})

		assert.Error(t, svc.Fetch(ctx, 1))
		assert.Equal(t, resource.ScreenshotNone, repo.resources[1].ScreenshotStatus)
	})

	t.Run("late abort", func(t *testing.T) {
		repo := &memRepo{resources: map[int]resource.Resource{1: {ID: 1, Link: "https://example.org"}}}
		repo.afterGet = func(r *resource.Resource, n int) {
			if n > 1 {
				r.ScreenshotStatus = resource.ScreenshotDone
			}
		}
		svc, store := newTestService(repo, &fakeCapturer{})

		require.NoError(t, svc.Fetch(ctx, 1))
		assert.Empty(t, repo.images)
		assert.Empty(t, store.files)
	})
}

func TestService_FetchPending(t *testing.T) {
	repo := &memRepo{resources: map[int]resource.Resource{
		1: {ID: 1, Year: 2023, Link: "https://example.org/1", PostStatus: resource.PostStatusDraft},
		2: {ID: 2, Year: 2023, Link: "https://example.org/2", PostStatus: resource.PostStatusPublish, ScreenshotStatus: resource.ScreenshotPending},
		3: {ID: 3, Year: 2023, Link: "https://example.org/3", PostStatus: resource.PostStatusPublish, ScreenshotStatus: resource.ScreenshotDone},
		4: {ID: 4, Year: 2022, Link: "https://example.org/4", PostStatus: resource.PostStatusPublish},
		5: {ID: 5, Year: 2023, PostStatus: resource.PostStatusPublish},
	}}
	svc, store := newTestService(repo, &fakeCapturer{})

	n, err := svc.FetchPending(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.files, 2)
	for _, id := range []int{1, 2} {
		assert.Equal(t, resource.ScreenshotDone, repo.resources[id].ScreenshotStatus, id)
	}
	assert.Equal(t, resource.ScreenshotNone, repo.resources[4].ScreenshotStatus)
}
