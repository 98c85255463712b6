package journal_test

import (
	"testing"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name        string
		prior, next domain.Transition
		want        domain.Transition
	}{
		{"created then deleted is transient", domain.Created, domain.Deleted, domain.None},
		{"created stays created when modified", domain.Created, domain.DisplayModified, domain.Created},
		{"display modified is idempotent", domain.DisplayModified, domain.DisplayModified, domain.DisplayModified},
		{"mesh then display upgrades", domain.MeshModified, domain.DisplayModified, domain.DisplayModified},
		{"display then mesh keeps display", domain.DisplayModified, domain.MeshModified, domain.DisplayModified},
		{"modified then deleted", domain.DisplayModified, domain.Deleted, domain.Deleted},
		{"none absorbs everything", domain.None, domain.DisplayModified, domain.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, journal.Merge(tt.prior, tt.next))
		})
	}
}

func TestJournal_MarkKeepsFirstTouchOrder(t *testing.T) {
	j := journal.New[string]()
	j.Mark(3, "c", domain.Created)
	j.Mark(1, "a", domain.DisplayModified)
	j.Mark(3, "c", domain.DisplayModified)

	entries := j.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ID(3), entries[0].ID)
	assert.Equal(t, domain.Created, entries[0].Transition)
	assert.Equal(t, "a", entries[1].Entity)
}

func TestJournal_InvertTransitions(t *testing.T) {
	j := journal.New[int]()
	j.Mark(1, 1, domain.Created)
	j.Mark(2, 2, domain.Deleted)
	j.Mark(3, 3, domain.MeshModified)

	j.InvertTransitions()

	got, _ := j.Get(1)
	assert.Equal(t, domain.Deleted, got)
	got, _ = j.Get(2)
	assert.Equal(t, domain.Created, got)
	got, _ = j.Get(3)
	assert.Equal(t, domain.MeshModified, got)

	j.InvertTransitions()
	got, _ = j.Get(1)
	assert.Equal(t, domain.Created, got, "double inversion is the identity")
}

func TestJournal_PruneAndSelect(t *testing.T) {
	j := journal.New[int]()
	j.Mark(1, 1, domain.Created)
	j.Mark(1, 1, domain.Deleted)
	j.Mark(2, 2, domain.Created)

	assert.Len(t, j.Select(domain.None), 1)
	j.Prune(domain.None)

	assert.Equal(t, 1, j.Len())
	_, ok := j.Get(1)
	assert.False(t, ok)
	assert.Equal(t, map[domain.Transition]int{domain.Created: 1}, j.Counts())
}
