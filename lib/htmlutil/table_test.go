package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExtractTable(t *testing.T) {
	doc := `<html><body>
	<p>Exported from Arena</p>
	<table>
		<tr><th>last_name</th><th> first_name </th><th>gender</th></tr>
		<tr><td>Smith</td><td>John&nbsp;</td><td>0</td></tr>
		<tr><td>Doe</td><td>Jane<br>Marie</td><td>1</td></tr>
		<tr><td>Brown</td><td><table><tr><td>nested</td></tr></table></td></tr>
	</table>
	<table><tr><td>second table</td></tr></table>
	</body></html>`

	table, err := ExtractTable(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)

	expected := Table{
		{"last_name", "first_name", "gender"},
		{"Smith", "John", "0"},
		{"Doe", "Jane Marie", "1"},
		{"Brown", "nested"},
	}
	diff := cmp.Diff(expected, table)
	if diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, 3, table.Width())
	require.Equal(t, "", table.Cell(3, 2))
	require.Equal(t, "", table.Cell(10, 0))
	require.Equal(t, []string{"last_name", "first_name", "gender"}, table.Header())
	require.Len(t, table.Body(), 3)
}

func TestExtractTableMissing(t *testing.T) {
	_, err := ExtractTable(context.Background(), strings.NewReader("<html><body>Session expired</body></html>"))
	require.ErrorIs(t, err, ErrNoTable)
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Smith, John", CleanText("  Smith,\n\t  John "))
	require.Equal(t, "", CleanText(" "))
	require.Equal(t, "Smith,  John", TrimText("\x00 Smith,  John\u00a0\n"))
}

func TestExtractTableKeepsInnerWhitespace(t *testing.T) {
	doc := `<table>
		<tr><th>Name</th></tr>
		<tr><td> Smith,  John </td></tr>
	</table>`
	table, err := ExtractTable(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "Smith,  John", table.Cell(1, 0))
}
