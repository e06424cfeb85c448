package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	mem := &MemoryAPI{}
	scoped := NewScopedAPI("sync", NewScopedAPI("sheets", mem))

	scoped.ReportBroken("manager.prep-sheet", "class-1")
	scoped.ReportWarning("arena.join")
	scoped.ReportCount("classes", 3)

	broken := mem.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "sheets: sync: manager.prep-sheet", broken[0].ID)
	require.Equal(t, []any{"class-1"}, broken[0].Params)

	require.Len(t, mem.Reports("warning"), 1)
	counts := mem.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)
	require.Len(t, mem.Reports(""), 3)
}
