package file

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SafeChild joins rel onto base and rejects any result that escapes base.
// Guards file-serving handlers against path traversal.
func SafeChild(base, rel string) (string, error) {
	cleaned := filepath.Clean("/" + rel)
	joined := filepath.Join(base, cleaned)

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	if absJoined != absBase && !strings.HasPrefix(absJoined, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes base directory", rel)
	}
	return absJoined, nil
}
