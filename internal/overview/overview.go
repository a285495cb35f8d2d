// Package overview computes and memoizes directory-level summaries.
// An overview samples up to a bounded number of files, asks the model
// to describe each through the shared dispatcher, and condenses the
// answers into one summary. Entries stay valid until explicitly
// refreshed; the cache never detects underlying file changes.
package overview

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/spoj/mq-mcp/internal/dispatch"
	"github.com/spoj/mq-mcp/internal/fstree"
	"github.com/spoj/mq-mcp/internal/paths"
	"github.com/spoj/mq-mcp/internal/qerr"
	"github.com/spoj/mq-mcp/internal/selector"
)

// describeQuery is the fixed internal query sent per sampled file.
const describeQuery = "give overview. Use dense language so that fewest words carry most meaning."

// maxCachedRoots bounds the LRU store. One process normally serves a
// single root; the bound only matters when callers point the service
// at many roots over its lifetime.
const maxCachedRoots = 64

// Entry is one cached overview.
type Entry struct {
	Summary   string    `json:"summary"`
	FileCount int       `json:"fileCount"`
	Sampled   bool      `json:"sampled"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service computes overviews and serves cached entries.
type Service struct {
	disp      *dispatch.Dispatcher
	sampleCap int
	logger    *slog.Logger

	store *lru.Cache[string, *Entry]

	// Per-root exclusivity: at most one synthesis per root at a time.
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates an overview Service. rng may be nil, in which
// case a time-seeded source is used.
func NewService(disp *dispatch.Dispatcher, sampleCap int, logger *slog.Logger, rng *rand.Rand) (*Service, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{
		disp:      disp,
		sampleCap: sampleCap,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
		rng:       rng,
	}
	// Evicting a root drops its lock too, so the lock map stays as
	// bounded as the store.
	store, err := lru.NewWithEvict[string, *Entry](maxCachedRoots, func(root string, _ *Entry) {
		s.dropLock(root)
	})
	if err != nil {
		return nil, err
	}
	s.store = store
	return s, nil
}

// rootLock returns the exclusivity lock for one root, creating it on
// first use.
func (s *Service) rootLock(root string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[root]
	if !ok {
		l = &sync.Mutex{}
		s.locks[root] = l
	}
	return l
}

// dropLock forgets the lock for one root. If the root is evicted while
// a synthesis holds its lock, a late caller recreates the lock and in
// the worst case computes the overview once more.
func (s *Service) dropLock(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, root)
}

// Get returns the overview for the enumerator's root, computing it on
// a miss or forced refresh. Late concurrent callers block on the
// per-root lock and then read the freshly stored entry instead of
// recomputing. description, when non-empty, is prepended to the
// synthesis input.
func (s *Service) Get(ctx context.Context, enum *fstree.Enumerator, description string, force bool) (*Entry, error) {
	root := enum.Root()

	lock := s.rootLock(root)
	lock.Lock()
	defer lock.Unlock()

	if !force {
		if entry, ok := s.store.Get(root); ok {
			s.logger.Debug("Overview cache hit",
				"root", root,
				"age", time.Since(entry.CreatedAt).String(),
			)
			return entry, nil
		}
	}

	entry, err := s.compute(ctx, enum, description)
	if err != nil {
		// A failed synthesis never overwrites a previous good entry.
		return nil, err
	}

	s.store.Add(root, entry)
	return entry, nil
}

// Invalidate drops the cached entry and the lock for one root.
func (s *Service) Invalidate(root string) {
	s.store.Remove(root)
	s.dropLock(root)
}

// compute samples files, dispatches the describe query, and condenses
// the answers.
func (s *Service) compute(ctx context.Context, enum *fstree.Enumerator, description string) (*Entry, error) {
	files, err := enum.All()
	if err != nil {
		return nil, qerr.New(qerr.OverviewFailed, "cannot enumerate "+enum.Root(), err)
	}
	if len(files) == 0 {
		return nil, qerr.Newf(qerr.OverviewFailed, "no files under %s", enum.Root())
	}

	sampled := false
	if len(files) > s.sampleCap {
		files = s.sample(files, s.sampleCap)
		sampled = true
	}

	targets := make([]selector.Target, 0, len(files))
	for _, rel := range files {
		targets = append(targets, selector.Target{Rel: rel, Abs: paths.JoinRootPath(enum.Root(), rel)})
	}

	outcomes, err := s.disp.Run(ctx, describeQuery, targets)
	if err != nil {
		return nil, err
	}

	summary, described := synthesize(description, outcomes, sampled)
	if described == 0 {
		return nil, qerr.Newf(qerr.OverviewFailed, "all %d sampled files failed to describe", len(outcomes))
	}

	s.logger.Info("Overview computed",
		"root", enum.Root(),
		"files", len(files),
		"described", described,
		"sampled", sampled,
	)

	return &Entry{
		Summary:   summary,
		FileCount: len(files),
		Sampled:   sampled,
		CreatedAt: time.Now(),
	}, nil
}

// sample draws k files uniformly without replacement, preserving
// lexicographic order in the result.
func (s *Service) sample(files []string, k int) []string {
	s.rngMu.Lock()
	perm := s.rng.Perm(len(files))
	s.rngMu.Unlock()

	idx := perm[:k]
	sort.Ints(idx)

	out := make([]string, 0, k)
	for _, i := range idx {
		out = append(out, files[i])
	}
	return out
}

// synthesize condenses per-file answers into one summary. Failed files
// are counted but their errors are not included. Returns the summary
// and how many files contributed.
func synthesize(description string, outcomes []dispatch.Outcome, sampled bool) (string, int) {
	var b strings.Builder

	if sampled {
		fmt.Fprintf(&b, "Overview based on a random sample of %d files.\n", len(outcomes))
	} else {
		fmt.Fprintf(&b, "Overview covering all %d files.\n", len(outcomes))
	}
	if description != "" {
		b.WriteString(description)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	described := 0
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		described++
		b.WriteString(o.Path)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(o.Answer))
		b.WriteString("\n")
	}
	if failed > 0 {
		fmt.Fprintf(&b, "\n(%d files could not be described)\n", failed)
	}

	return b.String(), described
}
