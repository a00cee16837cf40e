package crawler

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "mediacrawl/pkg/errors"
	"mediacrawl/pkg/logger"
)

// fakeEngine records calls and serves canned items.
type fakeEngine struct {
	platform Platform
	items    []Item
	err      error
	calls    int
}

func (f *fakeEngine) Platform() Platform { return f.platform }

func (f *fakeEngine) Search(ctx context.Context, job Job) ([]Item, error) {
	f.calls++
	return f.items, f.err
}

func (f *fakeEngine) FetchDetail(ctx context.Context, job Job) ([]Item, error) {
	f.calls++
	return f.items, f.err
}

func (f *fakeEngine) FetchComments(ctx context.Context, job Job, postID string) ([]Item, error) {
	f.calls++
	return f.items, f.err
}

func (f *fakeEngine) FetchTimeline(ctx context.Context, job Job) ([]Item, error) {
	f.calls++
	return f.items, f.err
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{
			name:    "valid search",
			job:     Job{Platform: PlatformDouyin, Mode: ModeSearch, Keywords: []string{"golang"}},
			wantErr: false,
		},
		{
			name:    "search without keywords",
			job:     Job{Platform: PlatformDouyin, Mode: ModeSearch},
			wantErr: true,
		},
		{
			name:    "valid detail",
			job:     Job{Platform: PlatformDouyin, Mode: ModeDetail, TargetIDs: []string{"7280168484"}},
			wantErr: false,
		},
		{
			name:    "detail without target ids",
			job:     Job{Platform: PlatformDouyin, Mode: ModeDetail},
			wantErr: true,
		},
		{
			name:    "valid creator",
			job:     Job{Platform: PlatformDouyin, Mode: ModeCreator, CreatorID: "MS4wLjAB"},
			wantErr: false,
		},
		{
			name:    "creator without id",
			job:     Job{Platform: PlatformDouyin, Mode: ModeCreator},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			job:     Job{Platform: PlatformDouyin, Mode: "mixed", Keywords: []string{"x"}},
			wantErr: true,
		},
		{
			name:    "negative max count",
			job:     Job{Platform: PlatformDouyin, Mode: ModeSearch, Keywords: []string{"x"}, MaxCount: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var apiErr *errs.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, errs.KindInvalidJob, apiErr.Kind)
		})
	}
}

func TestRegistryResolveUnknownPlatform(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeEngine{platform: PlatformDouyin})

	_, err := registry.Resolve(PlatformWeibo)
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.KindUnsupportedPlatform, apiErr.Kind)
	// The error names the identifiers that are registered.
	assert.Contains(t, apiErr.Message, "dy")
}

func TestRegistryPlatformsSorted(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeEngine{platform: PlatformWeibo})
	registry.Register(&fakeEngine{platform: PlatformDouyin})

	assert.Equal(t, []string{"dy", "wb"}, registry.Platforms())
}

func TestRunnerInvalidJobSkipsEngine(t *testing.T) {
	engine := &fakeEngine{platform: PlatformDouyin}
	registry := NewRegistry()
	registry.Register(engine)
	runner := NewRunner(registry, nil)

	outcome := runner.Run(context.Background(), Job{
		Platform: PlatformDouyin,
		Mode:     ModeSearch, // no keywords
	})

	assert.True(t, outcome.Failed())
	assert.Equal(t, errs.KindInvalidJob, outcome.ErrKind)
	assert.Equal(t, 0, engine.calls, "invalid job must not reach the engine")
}

func TestRunnerUnsupportedPlatform(t *testing.T) {
	runner := NewRunner(NewRegistry(), nil)

	outcome := runner.Run(context.Background(), Job{
		Platform: PlatformZhihu,
		Mode:     ModeSearch,
		Keywords: []string{"golang"},
	})

	assert.True(t, outcome.Failed())
	assert.Equal(t, errs.KindUnsupportedPlatform, outcome.ErrKind)
}

func TestRunnerCompletesPerMode(t *testing.T) {
	items := []Item{
		{ID: "1", Kind: KindPost, CreatedAt: 100},
		{ID: "2", Kind: KindPost, CreatedAt: 99},
	}

	tests := []struct {
		name string
		job  Job
	}{
		{"search", Job{Platform: PlatformDouyin, Mode: ModeSearch, Keywords: []string{"golang"}}},
		{"detail", Job{Platform: PlatformDouyin, Mode: ModeDetail, TargetIDs: []string{"1", "2"}}},
		{"creator", Job{Platform: PlatformDouyin, Mode: ModeCreator, CreatorID: "MS4wLjAB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{platform: PlatformDouyin, items: items}
			registry := NewRegistry()
			registry.Register(engine)
			runner := NewRunner(registry, nil)

			outcome := runner.Run(context.Background(), tt.job)

			require.Equal(t, StateCompleted, outcome.State)
			assert.Equal(t, 2, outcome.Count)
			assert.Equal(t, items, outcome.Items)
			assert.Equal(t, 1, engine.calls)
		})
	}
}

func TestRunnerSurfacesEngineErrorKind(t *testing.T) {
	engine := &fakeEngine{
		platform: PlatformDouyin,
		err:      errs.New(errs.KindAccountBlocked, "blocked response body"),
	}
	registry := NewRegistry()
	registry.Register(engine)
	log := logger.NewTestLogger()
	runner := NewRunner(registry, log)

	outcome := runner.Run(context.Background(), Job{
		Platform: PlatformDouyin,
		Mode:     ModeSearch,
		Keywords: []string{"golang"},
	})

	assert.True(t, outcome.Failed())
	assert.Equal(t, errs.KindAccountBlocked, outcome.ErrKind)
	assert.Equal(t, 1, engine.calls, "runner must not retry a failed job")
	assert.True(t, log.HasMessage("job failed"))
	assert.True(t, log.HasError())
}

func TestRunnerDetailIdempotence(t *testing.T) {
	// Re-running an identical detail job must produce identical results:
	// no state leaks between runs of the same job.
	engine := &fakeEngine{
		platform: PlatformDouyin,
		items: []Item{
			{ID: "7280168484", Kind: KindPost, CreatedAt: 1700000000},
		},
	}
	registry := NewRegistry()
	registry.Register(engine)
	runner := NewRunner(registry, nil)

	job := Job{Platform: PlatformDouyin, Mode: ModeDetail, TargetIDs: []string{"7280168484"}}

	first := runner.Run(context.Background(), job)
	second := runner.Run(context.Background(), job)

	require.Equal(t, StateCompleted, first.State)
	require.Equal(t, StateCompleted, second.State)
	assert.True(t, reflect.DeepEqual(first.Items, second.Items))
	assert.Equal(t, first.Count, second.Count)
}
