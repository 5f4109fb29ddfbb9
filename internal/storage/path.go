package storage

import (
	"fmt"
	"strings"
)

// ObjectPath maps an image owner and identifier to the object name
// user/id. Both parts must be non-empty and free of path separators.
func ObjectPath(user, id string) (string, error) {
	if user == "" || id == "" {
		return "", fmt.Errorf("user and id must be non-empty")
	}
	if strings.ContainsAny(user, `/\`) || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("user and id must not contain path separators")
	}
	return user + "/" + id, nil
}
