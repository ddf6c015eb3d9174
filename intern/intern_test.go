package intern

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bevyengine/bevy-sub038/assert"
)

func TestSameStringYieldsSamePointer(t *testing.T) {
	in := NewInterner()
	a := in.Intern("update")
	b := in.Intern("update")
	assert.Check(t, a == b, "interning the same string twice must return the same token")
	assert.Equal(t, "update", a.String())
}

func TestDifferentStringsYieldDifferentPointers(t *testing.T) {
	in := NewInterner()
	a := in.Intern("physics")
	b := in.Intern("render")
	assert.Check(t, a != b)
}

func TestDistinctInternersNeverShareTokens(t *testing.T) {
	first := NewInterner()
	second := NewInterner()
	a := first.Intern("movement")
	b := second.Intern("movement")
	assert.Check(t, a != b, "tokens from distinct interners must not be equal")
	assert.Equal(t, a.String(), b.String())
}

func TestPackageLevelInternUsesDefaultInterner(t *testing.T) {
	a := Intern("default-scoped")
	b := Default().Intern("default-scoped")
	assert.Check(t, a == b)
}

func TestConcurrentInterning(t *testing.T) {
	in := NewInterner()
	const goroutines = 16
	const labels = 50

	var wg sync.WaitGroup
	results := make([][]*Label, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			results[g] = make([]*Label, labels)
			for i := 0; i < labels; i++ {
				results[g][i] = in.Intern(fmt.Sprintf("label-%d", i))
			}
		}(g)
	}
	wg.Wait()

	for g := 1; g < goroutines; g++ {
		for i := 0; i < labels; i++ {
			assert.Check(t, results[0][i] == results[g][i], "label-%d diverged between goroutines", i)
		}
	}
	assert.Equal(t, labels, in.Len())
}
