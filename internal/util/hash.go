// Package util provides shared utility functions.
package util

import (
	"hash/fnv"
)

// IdentifierHash computes a stable 4-byte hash of a content identifier
// (mission, level stage, submarine). Both ends of a connection use it to
// compare identifiers without sending the full strings.
func IdentifierHash(identifier string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(identifier))
	return h.Sum32()
}
