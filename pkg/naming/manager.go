// Package naming allocates entity identifiers and per-type display names.
package naming

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/topoedit/pkg/domain"
)

// Stats is the full counter vector of a Manager.
type Stats struct {
	// Counters holds the next sequence number for each kind, indexed by domain.Kind.
	Counters [6]uint64 `json:"counters"`
	// NextID is the next process-wide identifier to issue.
	NextID uint64 `json:"next_id"`
}

// Manager issues monotonically increasing identifiers and names.
// Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	stats   Stats
	shifted []Stats
}

// NewManager creates a manager whose first id is 1 and first names end in 0000.
func NewManager() *Manager {
	return &Manager{stats: Stats{NextID: 1}}
}

// NextID issues a new unique identifier.
func (m *Manager) NextID() domain.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.stats.NextID
	m.stats.NextID++
	return domain.ID(id)
}

// NextName issues the next display name for kind k.
func (m *Manager) NextName(k domain.Kind) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.stats.Counters[k]
	m.stats.Counters[k]++
	return FormatName(k, n)
}

// FormatName renders the display name of the n-th entity of kind k.
func FormatName(k domain.Kind, n uint64) string {
	return fmt.Sprintf("%s%04d", k.Prefix(), n)
}

// ParseName extracts the sequence number from a name issued for kind k.
func ParseName(k domain.Kind, name string) (uint64, bool) {
	rest, ok := strings.CutPrefix(name, k.Prefix())
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Reserve moves the counters past an externally created entity so later
// issuance never collides with it.
func (m *Manager) Reserve(k domain.Kind, id domain.ID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(id) >= m.stats.NextID {
		m.stats.NextID = uint64(id) + 1
	}
	if n, ok := ParseName(k, name); ok && n >= m.stats.Counters[k] {
		m.stats.Counters[k] = n + 1
	}
}

// Stats returns a copy of the counter vector.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// SetStats restores a counter vector previously returned by Stats.
func (m *Manager) SetStats(s Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = s
}

// ActivateShiftingID records the counters so that the names issued until
// UnactivateShiftingID can be handed out again. Activations nest.
func (m *Manager) ActivateShiftingID() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifted = append(m.shifted, m.stats)
}

// UnactivateShiftingID rolls the counters back to the matching activation.
func (m *Manager) UnactivateShiftingID() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.shifted) == 0 {
		return domain.New(domain.CodeState, "id shifting is not active")
	}
	last := len(m.shifted) - 1
	m.stats = m.shifted[last]
	m.shifted = m.shifted[:last]
	return nil
}

// Shifting reports whether an activation is pending.
func (m *Manager) Shifting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shifted) > 0
}
