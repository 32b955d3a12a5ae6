package helpers

import (
	"errors"
	"strings"
)

// GetField returns the whitespace-separated field at index
func GetField(target string, index int) (string, error) {
	parts := strings.Fields(target)
	if index < 0 || index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}
