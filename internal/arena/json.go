package arena

import (
	"fmt"
	"strconv"

	"arena-sheets/lib/htmlutil"

	"github.com/titanous/json5"
)

// TableFromJSON reads a table converted to json by tabletojson, an array of
// objects keyed by column index ("0", "1", ...).
func TableFromJSON(data []byte) (htmlutil.Table, error) {
	var rows []map[string]any
	err := json5.Unmarshal(data, &rows)
	if err != nil {
		return nil, err
	}

	table := make(htmlutil.Table, 0, len(rows))
	for i, obj := range rows {
		width := 0
		for key := range obj {
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("row %d: non-numeric column key %q", i, key)
			}
			if idx+1 > width {
				width = idx + 1
			}
		}
		row := make([]string, width)
		for key, value := range obj {
			idx, _ := strconv.Atoi(key)
			switch v := value.(type) {
			case nil:
			case string:
				row[idx] = v
			default:
				row[idx] = fmt.Sprint(v)
			}
		}
		table = append(table, row)
	}
	return table, nil
}
