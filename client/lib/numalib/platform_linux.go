//go:build linux

package numalib

// PlatformScanners returns the scanners appropriate for the running
// platform: sysfs topology discovery followed by a /proc/cpuinfo clock
// speed guess.
func PlatformScanners() []Scanner {
	return []Scanner{&Sysfs{}, NewCpuinfo()}
}
