// Package selector resolves a query's target file set from an explicit
// name list, a regex over relative paths, or a regex plus a uniform
// random sample.
package selector

import (
	"math/rand"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/spoj/mq-mcp/internal/fstree"
	"github.com/spoj/mq-mcp/internal/paths"
	"github.com/spoj/mq-mcp/internal/qerr"
)

// Target is one selected file. Err is pre-populated for explicit
// entries that failed resolution; such targets skip dispatch and carry
// their error straight into the batch outcome.
type Target struct {
	Rel string
	Abs string
	Err error
}

// Selector produces target file lists for the dispatcher.
type Selector struct {
	enum *fstree.Enumerator

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Selector over the given enumerator. rng may be nil, in
// which case a time-seeded source is used; tests inject a seeded one.
func New(enum *fstree.Enumerator, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{enum: enum, rng: rng}
}

// Explicit resolves an explicit filename list, deduplicating on the
// resolved relative path while preserving first-seen order, so spelling
// variants like "a.txt" and "./a.txt" collapse to one target. A name
// that escapes the root yields a Target with Err set; it does not
// abort the batch.
func (s *Selector) Explicit(names []string) []Target {
	seen := make(map[string]bool, len(names))
	targets := make([]Target, 0, len(names))

	for _, name := range names {
		rel, abs, err := paths.Resolve(s.enum.Root(), name)
		if err != nil {
			// Unresolvable names dedupe on their raw spelling.
			if seen[name] {
				continue
			}
			seen[name] = true
			targets = append(targets, Target{Rel: name, Err: err})
			continue
		}
		if seen[rel] {
			continue
		}
		seen[rel] = true
		targets = append(targets, Target{Rel: rel, Abs: abs})
	}
	return targets
}

// ByRegex selects all files whose relative path matches pattern, in
// the enumerator's lexicographic order. Matching is an unanchored
// search over the full relative slash path. An invalid pattern aborts
// the whole call with a REGEX_COMPILE error.
func (s *Selector) ByRegex(pattern string) ([]Target, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, qerr.New(qerr.RegexCompile, "invalid pattern "+pattern, err)
	}

	all, err := s.enum.All()
	if err != nil {
		return nil, err
	}

	var targets []Target
	for _, rel := range all {
		if !re.MatchString(rel) {
			continue
		}
		targets = append(targets, Target{Rel: rel, Abs: paths.JoinRootPath(s.enum.Root(), rel)})
	}
	return targets, nil
}

// ByRegexSampled selects a uniform random sample without replacement
// of size min(sampleSize, matches) from the regex match set. The
// returned targets keep enumeration order. sampleSize <= 0 is a
// selection error.
func (s *Selector) ByRegexSampled(pattern string, sampleSize int) ([]Target, error) {
	if sampleSize <= 0 {
		return nil, qerr.Newf(qerr.SelectionInvalid, "sample_size must be positive, got %d", sampleSize)
	}

	matches, err := s.ByRegex(pattern)
	if err != nil {
		return nil, err
	}
	if sampleSize >= len(matches) {
		return matches, nil
	}

	idx := s.sampleIndices(len(matches), sampleSize)
	sampled := make([]Target, 0, sampleSize)
	for _, i := range idx {
		sampled = append(sampled, matches[i])
	}
	return sampled, nil
}

// sampleIndices draws k distinct indices from [0, n) and returns them
// in ascending order so sampled output preserves enumeration order.
func (s *Selector) sampleIndices(n, k int) []int {
	s.mu.Lock()
	perm := s.rng.Perm(n)
	s.mu.Unlock()

	idx := perm[:k]
	sort.Ints(idx)
	return idx
}
