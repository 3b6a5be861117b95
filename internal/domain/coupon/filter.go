package coupon

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// CodeFilter is a bloom filter over known coupon codes. It answers "this code
// definitely does not exist" without touching the repository, which keeps
// bogus code guesses (and the auto-apply probe on carts without a promo
// configured) off the database.
//
// The filter only grows: deleting a coupon leaves a stale positive behind,
// which just means the lookup falls through to the repository and misses
// there. Reload rebuilds the filter from scratch.
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter

	capacity uint
	fpr      float64
}

// NewCodeFilter creates an empty CodeFilter sized for the expected number of
// codes at the given false-positive rate.
func NewCodeFilter(capacity uint, fpr float64) *CodeFilter {
	return &CodeFilter{
		filter:   bloom.NewWithEstimates(capacity, fpr),
		capacity: capacity,
		fpr:      fpr,
	}
}

// Reload replaces the filter contents with the given codes.
func (f *CodeFilter) Reload(codes []string) {
	next := bloom.NewWithEstimates(f.capacity, f.fpr)
	for _, code := range codes {
		next.AddString(NormalizeCode(code))
	}

	f.mu.Lock()
	f.filter = next
	f.mu.Unlock()
}

// Add registers a single code, typically after an admin creates or renames
// a coupon.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	f.filter.AddString(NormalizeCode(code))
	f.mu.Unlock()
}

// MightContain reports whether code could be a known coupon code.
// False means definitely unknown; true requires a repository lookup.
func (f *CodeFilter) MightContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(NormalizeCode(code))
}
