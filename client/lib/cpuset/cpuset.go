// Package cpuset implements the integer-list encoding used by the kernel
// cpuset controller's cpuset.cpus and cpuset.mems files, and the set
// algebra the isolator needs over it.
package cpuset

import (
	"strconv"
	"strings"

	"github.com/cpusetiso/agent/client/lib/idset"
)

// CPUSet is an immutable-by-convention set of OS core or NUMA node
// indexes.
type CPUSet struct {
	ids *idset.Set[uint16]
}

// New builds a CPUSet from the given indexes.
func New(ids ...uint16) CPUSet {
	return CPUSet{ids: idset.From(ids)}
}

// Parse decodes a kernel cpuset list ("N", "N,M", "lo-hi", or a mix) into
// a CPUSet. The reader accepts all three forms per the kernel's own
// cpuset.cpus grammar.
func Parse(s string) (CPUSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return New(), nil
	}
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if lo, hi, found := strings.Cut(term, "-"); found {
			_, errLo := strconv.Atoi(strings.TrimSpace(lo))
			_, errHi := strconv.Atoi(strings.TrimSpace(hi))
			if errLo != nil || errHi != nil {
				return CPUSet{}, ErrParse(s)
			}
			continue
		}
		if _, err := strconv.Atoi(term); err != nil {
			return CPUSet{}, ErrParse(s)
		}
	}
	return CPUSet{ids: idset.Parse[uint16](s)}, nil
}

// ErrParse is returned by Parse when the input is not a valid cpuset
// list.
type ErrParse string

func (e ErrParse) Error() string { return "cpuset: malformed list: " + string(e) }

// ToSlice returns the sorted, deduplicated member indexes.
func (c CPUSet) ToSlice() []uint16 {
	if c.ids == nil {
		return nil
	}
	return c.ids.Slice()
}

// Size returns the number of members.
func (c CPUSet) Size() int {
	if c.ids == nil {
		return 0
	}
	return c.ids.Size()
}

// String renders the set in plain comma-separated decimal form, with no
// range compaction, matching the write-side encoding the kernel
// controller expects from this driver.
func (c CPUSet) String() string {
	ids := c.ToSlice()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

// Union returns a new CPUSet containing the members of both sets.
func (c CPUSet) Union(o CPUSet) CPUSet {
	out := New(c.ToSlice()...)
	for _, id := range o.ToSlice() {
		out.ids.Insert(id)
	}
	return out
}

// Difference returns the members of c that are not in o.
func (c CPUSet) Difference(o CPUSet) CPUSet {
	oset := o.ids
	out := Empty()
	for _, id := range c.ToSlice() {
		if oset == nil || !oset.Contains(id) {
			out.ids.Insert(id)
		}
	}
	return out
}

// Intersection returns the members present in both c and o.
func (c CPUSet) Intersection(o CPUSet) CPUSet {
	out := Empty()
	for _, id := range c.ToSlice() {
		if o.ids != nil && o.ids.Contains(id) {
			out.ids.Insert(id)
		}
	}
	return out
}

// Empty returns a new, empty CPUSet.
func Empty() CPUSet {
	return CPUSet{ids: idset.Empty[uint16]()}
}

// ContainsAny reports whether c shares any member with o.
func (c CPUSet) ContainsAny(o CPUSet) bool {
	for _, id := range o.ToSlice() {
		if c.ids != nil && c.ids.Contains(id) {
			return true
		}
	}
	return false
}

// IsSupersetOf reports whether c contains every member of o.
func (c CPUSet) IsSupersetOf(o CPUSet) bool {
	for _, id := range o.ToSlice() {
		if c.ids == nil || !c.ids.Contains(id) {
			return false
		}
	}
	return true
}

// Equal reports whether c and o have identical membership.
func (c CPUSet) Equal(o CPUSet) bool {
	a, b := c.ToSlice(), o.ToSlice()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
