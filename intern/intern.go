// Package intern provides process-wide deduplicated label tokens for cheap
// identity comparison of symbolic names (schedule, set, and system labels).
//
// Equality and hashing of Label values are by pointer, not by content. Two
// distinct Interner instances never produce equal tokens for equal content;
// this is a deliberate invariant, not a bug. Tests that need isolation should
// create their own Interner rather than relying on the default one.
package intern

import (
	"sync"
)

// Label is an interned token. Compare Labels with ==; two Labels obtained
// from the same Interner are equal iff they were interned from equal strings.
type Label struct {
	value string
}

// String returns the content the label was interned from.
func (l *Label) String() string {
	if l == nil {
		return "<nil>"
	}
	return l.value
}

// Interner deduplicates strings into stable Label pointers. Interned labels
// are never released; the intended lifetime is the process lifetime.
type Interner struct {
	mu     sync.RWMutex
	labels map[string]*Label
}

func NewInterner() *Interner {
	return &Interner{labels: make(map[string]*Label)}
}

// Intern returns the canonical Label for value, creating it on first use.
func (in *Interner) Intern(value string) *Label {
	in.mu.RLock()
	label, ok := in.labels[value]
	in.mu.RUnlock()
	if ok {
		return label
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if label, ok := in.labels[value]; ok {
		return label
	}
	label = &Label{value: value}
	in.labels[value] = label
	return label
}

// Len returns the number of distinct labels interned so far.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.labels)
}

var (
	defaultInterner     *Interner
	defaultInternerOnce sync.Once
)

// Default returns the process-wide interner, initializing it on first use.
// It is never torn down mid-run.
func Default() *Interner {
	defaultInternerOnce.Do(func() {
		defaultInterner = NewInterner()
	})
	return defaultInterner
}

// Intern interns value in the process-wide default interner.
func Intern(value string) *Label {
	return Default().Intern(value)
}
