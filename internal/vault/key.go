package vault

import (
	"fmt"
	"path"
	"strings"
)

// cleanKey normalizes a slash separated object key and rejects keys that
// would escape the vault root.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid vault key: %q", key)
	}
	return cleaned, nil
}
