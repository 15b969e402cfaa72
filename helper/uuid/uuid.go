// Package uuid generates random identifiers for cpuset groups and test
// fixtures.
package uuid

import (
	"fmt"

	guuid "github.com/hashicorp/go-uuid"
)

// Generate returns 16 random bytes formatted as a UUID string. The
// version and variant bits are not set.
func Generate() string {
	buf, err := guuid.GenerateRandomBytes(16)
	if err != nil {
		panic(fmt.Errorf("failed to read random bytes: %w", err))
	}
	return formatUUID(buf)
}

// Short returns the first 8 characters of a generated UUID, useful as a
// human-scannable suffix in test fixtures.
func Short() string {
	return Generate()[:8]
}

func formatUUID(buf []byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}
