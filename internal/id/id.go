// Package id generates record identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet matches the character set of hosted document stores' auto ids:
// alphanumeric only, so ids are safe inside composite keys such as vote ids.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// RecordLength is the length of an auto-assigned record id.
const RecordLength = 20

// New returns a random record id.
func New() (string, error) {
	id, err := gonanoid.Generate(alphabet, RecordLength)
	if err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	return id, nil
}

// Generate creates a prefixed id, e.g. "usr-V1StGXR8Z5jdHi6BmyTq".
func Generate(prefix string) (string, error) {
	id, err := New()
	if err != nil {
		return "", err
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
