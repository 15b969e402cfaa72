//go:build !linux

package numalib

// PlatformScanners returns no scanners on platforms without a topology
// discovery implementation; callers must pass the result through
// NoImpl to get a usable synthetic topology.
func PlatformScanners() []Scanner {
	return nil
}
