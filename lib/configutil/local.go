package configutil

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/titanous/json5"
)

// SetLocal writes values into the local override file of name, keys are
// dotted paths ("google.refresh_token"). Existing values in the file are
// kept, comments are not.
func SetLocal(name string, values map[string]any) (string, error) {
	path := LocalPath(name)

	doc := map[string]any{}
	contents, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return path, err
	}
	if len(contents) > 0 {
		err = json5.Unmarshal(contents, &doc)
		if err != nil {
			return path, err
		}
	}

	for key, value := range values {
		parts := strings.Split(key, ".")
		current := doc
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = value
	}

	out, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		return path, err
	}
	return path, os.WriteFile(path, append(out, '\n'), 0600)
}
