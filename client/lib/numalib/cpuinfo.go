package numalib

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/cpusetiso/agent/client/lib/numalib/hw"
)

// Cpuinfo enriches an already-discovered Topology with a coarse, current
// clock-speed guess read from /proc/cpuinfo. It never discovers cores
// itself; Sysfs must run first.
type Cpuinfo struct {
	cpuinfo string
}

// NewCpuinfo returns a Cpuinfo scanner reading the standard /proc/cpuinfo
// path.
func NewCpuinfo() *Cpuinfo {
	return &Cpuinfo{cpuinfo: "/proc/cpuinfo"}
}

// ScanSystem sets GuessSpeed on every already-discovered core to the
// average "cpu MHz" value reported across all processors.
func (s *Cpuinfo) ScanSystem(top *Topology) {
	f, err := os.Open(s.cpuinfo)
	if err != nil {
		return
	}
	defer f.Close()

	var sum float64
	var n int

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu MHz") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return
	}

	avg := hw.MHz(sum / float64(n))
	for i := range top.Cores {
		top.Cores[i].GuessSpeed = avg
	}
}
