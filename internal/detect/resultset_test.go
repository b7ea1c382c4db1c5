package detect

import (
	"testing"

	"github.com/aisentools/msfix/internal/scene"
	"github.com/stretchr/testify/assert"
)

func sample() []Finding {
	return []Finding{
		{Kind: scene.Prefab, SourcePath: "Assets/Prefabs/Enemy.prefab", ObjectPath: "Enemy"},
		{Kind: scene.Prefab, SourcePath: "Assets/Prefabs/Enemy.prefab", ObjectPath: "Enemy/Gun"},
		{Kind: scene.Scene, SourcePath: "Assets/Scenes/Main.scene", ObjectPath: "World/Spawner"},
		{Kind: scene.Prefab, SourcePath: "Assets/Prefabs/Door.prefab", ObjectPath: "Door"},
	}
}

func TestResultSetDedupIdempotent(t *testing.T) {
	rs := NewResultSet()

	assert.Equal(t, 4, rs.AddAll(sample()))
	first := rs.Findings()

	assert.Equal(t, 0, rs.AddAll(sample()))
	assert.Equal(t, first, rs.Findings())
	assert.Equal(t, 4, rs.Len())
}

func TestResultSetKeepsInsertionOrder(t *testing.T) {
	rs := NewResultSet()
	rs.AddAll(sample())

	got := rs.Findings()
	assert.Equal(t, "Enemy", got[0].ObjectPath)
	assert.Equal(t, "Door", got[3].ObjectPath)
}

func TestResultSetCountsAndPaths(t *testing.T) {
	rs := NewResultSet()
	rs.AddAll(sample())

	assert.Equal(t, 3, rs.CountBy(scene.Prefab))
	assert.Equal(t, 1, rs.CountBy(scene.Scene))
	assert.Equal(t, []string{"Assets/Prefabs/Enemy.prefab", "Assets/Prefabs/Door.prefab"}, rs.SourcePaths(scene.Prefab))
}

func TestResultSetClear(t *testing.T) {
	rs := NewResultSet()
	rs.AddAll(sample())
	rs.Clear()

	assert.Zero(t, rs.Len())
	assert.True(t, rs.Add(sample()[0]), "cleared keys can be added again")
}

func TestFilter(t *testing.T) {
	rs := NewResultSet()
	rs.AddAll(sample())

	tests := []struct {
		query string
		want  int
	}{
		{"", 4},
		{"enemy", 2},
		{`"SPAWNER"`, 1},
		{"scene", 1},
		{"prefab", 3},
		{"nothing-here", 0},
	}
	for _, tt := range tests {
		assert.Len(t, rs.Filter(tt.query), tt.want, "query %q", tt.query)
	}
}
