package naming_test

import (
	"testing"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssuesPerTypeNames(t *testing.T) {
	m := naming.NewManager()

	assert.Equal(t, "Som0000", m.NextName(domain.KindVertex))
	assert.Equal(t, "Som0001", m.NextName(domain.KindVertex))
	assert.Equal(t, "Bl0000", m.NextName(domain.KindBlock))
	assert.Equal(t, domain.ID(1), m.NextID())
	assert.Equal(t, domain.ID(2), m.NextID())
}

func TestManager_ShiftingRollsBack(t *testing.T) {
	m := naming.NewManager()
	m.NextName(domain.KindCoEdge)
	before := m.Stats()

	m.ActivateShiftingID()
	assert.True(t, m.Shifting())
	assert.Equal(t, "Ar0001", m.NextName(domain.KindCoEdge))
	m.NextID()
	require.NoError(t, m.UnactivateShiftingID())

	assert.False(t, m.Shifting())
	assert.Equal(t, before, m.Stats())
	assert.Equal(t, "Ar0001", m.NextName(domain.KindCoEdge), "freed names are reused")
}

func TestManager_UnactivateWithoutActivate(t *testing.T) {
	m := naming.NewManager()
	err := m.UnactivateShiftingID()
	assert.ErrorIs(t, err, domain.ErrState)
}

func TestManager_SetStats(t *testing.T) {
	m := naming.NewManager()
	m.NextName(domain.KindFace)
	saved := m.Stats()
	m.NextName(domain.KindFace)
	m.NextID()

	m.SetStats(saved)
	assert.Equal(t, "Face0001", m.NextName(domain.KindFace))
	assert.Equal(t, domain.ID(1), m.NextID())
}

func TestManager_Reserve(t *testing.T) {
	m := naming.NewManager()
	m.Reserve(domain.KindVertex, 41, "Som0007")

	assert.Equal(t, "Som0008", m.NextName(domain.KindVertex))
	assert.Equal(t, domain.ID(42), m.NextID())

	// Lower values never move the counters backwards.
	m.Reserve(domain.KindVertex, 3, "Som0002")
	assert.Equal(t, "Som0009", m.NextName(domain.KindVertex))
}

func TestParseName(t *testing.T) {
	n, ok := naming.ParseName(domain.KindCoFace, "Fa0012")
	require.True(t, ok)
	assert.Equal(t, uint64(12), n)

	_, ok = naming.ParseName(domain.KindCoFace, "Face0012")
	assert.False(t, ok, "Face prefix belongs to faces, not cofaces")
}
