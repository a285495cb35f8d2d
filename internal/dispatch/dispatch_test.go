package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spoj/mq-mcp/internal/qerr"
	"github.com/spoj/mq-mcp/internal/selector"
	"github.com/spoj/mq-mcp/internal/slogutil"
)

// fakeClient answers with a canned function, tracking concurrency.
type fakeClient struct {
	ask        func(query, content string) (string, error)
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
	totalCalls atomic.Int32
}

func (f *fakeClient) Ask(ctx context.Context, query, content string) (string, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	f.totalCalls.Add(1)
	time.Sleep(time.Millisecond)
	if f.ask != nil {
		return f.ask(query, content)
	}
	return "answer to " + query, nil
}

func writeTargets(t *testing.T, names ...string) []selector.Target {
	t.Helper()
	root := t.TempDir()
	targets := make([]selector.Target, 0, len(names))
	for _, name := range names {
		abs := filepath.Join(root, name)
		if err := os.WriteFile(abs, []byte("content of "+name), 0644); err != nil {
			t.Fatal(err)
		}
		targets = append(targets, selector.Target{Rel: name, Abs: abs})
	}
	return targets
}

func newTestDispatcher(capacity int, client *fakeClient) *Dispatcher {
	return New(NewLimiter(capacity), client, DefaultRetryPolicy(3, time.Millisecond), slogutil.NewDiscardLogger())
}

func TestRunPreservesOrderAndLength(t *testing.T) {
	targets := writeTargets(t, "a.txt", "b.txt", "c.txt")
	d := newTestDispatcher(2, &fakeClient{})

	outcomes, err := d.Run(context.Background(), "summarize", targets)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != len(targets) {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), len(targets))
	}
	for i, o := range outcomes {
		if o.Path != targets[i].Rel {
			t.Errorf("outcomes[%d].Path = %q, want %q", i, o.Path, targets[i].Rel)
		}
		if o.Err != nil {
			t.Errorf("outcomes[%d].Err = %v, want nil", i, o.Err)
		}
		if o.Answer == "" {
			t.Errorf("outcomes[%d] has no answer", i)
		}
	}
}

func TestRunRespectsConcurrencyCap(t *testing.T) {
	names := make([]string, 20)
	for i := range names {
		names[i] = string(rune('a'+i)) + ".txt"
	}
	targets := writeTargets(t, names...)

	client := &fakeClient{}
	d := newTestDispatcher(3, client)

	if _, err := d.Run(context.Background(), "summarize", targets); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if max := client.maxSeen.Load(); max > 3 {
		t.Errorf("observed %d concurrent calls, cap is 3", max)
	}
}

func TestRunSharedLimiterAcrossBatches(t *testing.T) {
	targets1 := writeTargets(t, "a.txt", "b.txt", "c.txt", "d.txt")
	targets2 := writeTargets(t, "e.txt", "f.txt", "g.txt", "h.txt")

	client := &fakeClient{}
	limiter := NewLimiter(2)
	d1 := New(limiter, client, DefaultRetryPolicy(3, time.Millisecond), slogutil.NewDiscardLogger())
	d2 := New(limiter, client, DefaultRetryPolicy(3, time.Millisecond), slogutil.NewDiscardLogger())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = d1.Run(context.Background(), "q", targets1)
	}()
	go func() {
		defer wg.Done()
		_, _ = d2.Run(context.Background(), "q", targets2)
	}()
	wg.Wait()

	if max := client.maxSeen.Load(); max > 2 {
		t.Errorf("observed %d concurrent calls across batches, shared cap is 2", max)
	}
}

func TestRunUnreadableFileBecomesOutcome(t *testing.T) {
	targets := writeTargets(t, "a.txt", "b.txt", "c.txt")
	// Point the middle target at a path that does not exist
	targets[1].Abs = filepath.Join(t.TempDir(), "missing.txt")

	d := newTestDispatcher(2, &fakeClient{})
	outcomes, err := d.Run(context.Background(), "summarize", targets)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("len(outcomes) = %d, want 3", len(outcomes))
	}
	if qerr.CodeOf(outcomes[1].Err) != qerr.FileRead {
		t.Errorf("outcomes[1].Err = %v, want FILE_READ", outcomes[1].Err)
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Error("siblings of a failed file should still succeed")
	}
}

func TestRunPrepopulatedSelectionError(t *testing.T) {
	targets := writeTargets(t, "a.txt")
	targets = append(targets, selector.Target{
		Rel: "../escape.txt",
		Err: qerr.Newf(qerr.PathEscapesRoot, "escapes root"),
	})

	client := &fakeClient{}
	d := newTestDispatcher(2, client)
	outcomes, err := d.Run(context.Background(), "summarize", targets)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if qerr.CodeOf(outcomes[1].Err) != qerr.PathEscapesRoot {
		t.Errorf("outcomes[1].Err = %v, want PATH_ESCAPES_ROOT", outcomes[1].Err)
	}
	// The pre-failed target must not consume a model call
	if client.totalCalls.Load() != 1 {
		t.Errorf("model calls = %d, want 1", client.totalCalls.Load())
	}
}

func TestRunRetriesRateLimit(t *testing.T) {
	targets := writeTargets(t, "a.txt")

	var calls atomic.Int32
	client := &fakeClient{ask: func(query, content string) (string, error) {
		if calls.Add(1) < 3 {
			return "", qerr.New(qerr.RateLimited, "slow down", nil)
		}
		return "eventually", nil
	}}
	d := newTestDispatcher(2, client)

	outcomes, err := d.Run(context.Background(), "q", targets)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcomes[0].Err != nil {
		t.Errorf("outcome should succeed after retries: %v", outcomes[0].Err)
	}
	if outcomes[0].Answer != "eventually" {
		t.Errorf("Answer = %q", outcomes[0].Answer)
	}
}

func TestRunDemotesExhaustedRateLimit(t *testing.T) {
	targets := writeTargets(t, "a.txt")

	client := &fakeClient{ask: func(query, content string) (string, error) {
		return "", qerr.New(qerr.RateLimited, "slow down", nil)
	}}
	d := newTestDispatcher(2, client)

	outcomes, err := d.Run(context.Background(), "q", targets)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if qerr.CodeOf(outcomes[0].Err) != qerr.ModelQuery {
		t.Errorf("exhausted retries should demote to MODEL_QUERY, got %v", outcomes[0].Err)
	}
}

func TestRunCancellationDiscardsPartials(t *testing.T) {
	names := make([]string, 10)
	for i := range names {
		names[i] = string(rune('a'+i)) + ".txt"
	}
	targets := writeTargets(t, names...)

	release := make(chan struct{})
	client := &fakeClient{ask: func(query, content string) (string, error) {
		<-release
		return "late", nil
	}}
	d := newTestDispatcher(2, client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var outcomes []Outcome
	var runErr error
	go func() {
		outcomes, runErr = d.Run(ctx, "q", targets)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)
	<-done

	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", runErr)
	}
	if outcomes != nil {
		t.Error("cancelled batch must discard partial outcomes")
	}
}

func TestRunEmptyTargets(t *testing.T) {
	d := newTestDispatcher(2, &fakeClient{})
	outcomes, err := d.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("len(outcomes) = %d, want 0", len(outcomes))
	}
}

func TestRunAnswerUsesFileContent(t *testing.T) {
	targets := writeTargets(t, "a.txt")

	client := &fakeClient{ask: func(query, content string) (string, error) {
		if !strings.Contains(content, "content of a.txt") {
			return "", qerr.Newf(qerr.ModelQuery, "wrong content %q", content)
		}
		return "grounded", nil
	}}
	d := newTestDispatcher(1, client)

	outcomes, err := d.Run(context.Background(), "q", targets)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcomes[0].Err != nil {
		t.Errorf("client did not receive file content: %v", outcomes[0].Err)
	}
}
