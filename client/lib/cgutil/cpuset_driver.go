// Package cgutil implements CgroupCpusetDriver: reading and writing the
// kernel cpuset controller's cpuset.cpus, cpuset.mems, and tasks files
// directly, one cgroup directory per managed container.
package cgutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/opencontainers/runc/libcontainer/cgroups"
)

// DefaultControllerRoot is the standard mount point for the cpuset
// controller on a cgroup v1 host.
const DefaultControllerRoot = "/sys/fs/cgroup/cpuset"

const (
	cpusFile  = "cpuset.cpus"
	memsFile  = "cpuset.mems"
	tasksFile = "tasks"
)

// Driver reads and writes the kernel cpuset controller rooted at Root.
// Every operation fails with ErrUnavailable if Root does not exist.
type Driver struct {
	Root   string
	logger hclog.Logger
}

// NewDriver returns a Driver rooted at root, using logger for I/O
// diagnostics.
func NewDriver(root string, logger hclog.Logger) *Driver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Driver{Root: root, logger: logger.Named("cgutil")}
}

func (d *Driver) checkAvailable() error {
	if _, err := os.Stat(d.Root); err != nil {
		if os.IsNotExist(err) {
			return ErrUnavailable
		}
		return wrapIO("stat", d.Root, err)
	}
	return nil
}

func (d *Driver) groupPath(name string) string {
	return filepath.Join(d.Root, name)
}

// ListGroups returns the names of every directory (not symlink) under
// the controller root.
func (d *Driver) ListGroups() ([]string, error) {
	if err := d.checkAvailable(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, wrapIO("readdir", d.Root, err)
	}

	var groups []string
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		if e.IsDir() {
			groups = append(groups, e.Name())
		}
	}
	return groups, nil
}

// ReadCoreList parses the kernel cpuset list at path: "N", "N,M", "lo-hi",
// or a comma-separated mix of all three, returning the sorted,
// deduplicated integers.
func (d *Driver) ReadCoreList(path string) ([]int, error) {
	if err := d.checkAvailable(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, wrapIO("read", path, err)
	}
	return parseList(string(raw))
}

func parseList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := make(map[int]struct{})
	var out []int
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if lo, hi, ok := parseRange(term); ok {
			if lo > hi {
				lo, hi = hi, lo
			}
			for v := lo; v <= hi; v++ {
				if _, dup := seen[v]; !dup {
					seen[v] = struct{}{}
					out = append(out, v)
				}
			}
			continue
		}
		v, err := strconv.Atoi(term)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrParse, s)
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	sortInts(out)
	return out, nil
}

func parseRange(term string) (lo, hi int, ok bool) {
	idx := strings.IndexByte(term, '-')
	if idx <= 0 || idx == len(term)-1 {
		return 0, 0, false
	}
	lo, errLo := strconv.Atoi(strings.TrimSpace(term[:idx]))
	hi, errHi := strconv.Atoi(strings.TrimSpace(term[idx+1:]))
	if errLo != nil || errHi != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ReadRootCpus parses the controller root's cpuset.cpus.
func (d *Driver) ReadRootCpus() ([]int, error) {
	if err := d.checkAvailable(); err != nil {
		return nil, err
	}
	return d.ReadCoreList(filepath.Join(d.Root, cpusFile))
}

// ReadRootMems parses the controller root's cpuset.mems.
func (d *Driver) ReadRootMems() ([]int, error) {
	if err := d.checkAvailable(); err != nil {
		return nil, err
	}
	return d.ReadCoreList(filepath.Join(d.Root, memsFile))
}

// CreateGroupOpts controls CreateGroup's idempotence.
type CreateGroupOpts struct {
	// AllowExisting makes CreateGroup a no-op (instead of
	// ErrAlreadyExists) when the group directory is already present.
	AllowExisting bool
}

// CreateGroup creates the cpuset group directory named name. By
// default, an existing directory is reported as ErrAlreadyExists; pass
// AllowExisting to treat it as success.
func (d *Driver) CreateGroup(name string, opts CreateGroupOpts) error {
	if err := d.checkAvailable(); err != nil {
		return err
	}
	path := d.groupPath(name)
	if _, err := os.Stat(path); err == nil {
		if opts.AllowExisting {
			return nil
		}
		return ErrAlreadyExists
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		return wrapIO("mkdir", path, err)
	}

	// A real cgroup v1 mount auto-populates cpuset.cpus/cpuset.mems/tasks
	// the instant the directory is created. Create them here too, but
	// only if absent, so a plain directory (as used in tests, or any
	// backing store that isn't a live cgroupfs) behaves the same way
	// without clobbering kernel-initialized content.
	for _, file := range []string{cpusFile, memsFile, tasksFile} {
		fp := filepath.Join(path, file)
		if _, err := os.Stat(fp); os.IsNotExist(err) {
			f, ferr := os.OpenFile(fp, os.O_CREATE|os.O_WRONLY, 0o644)
			if ferr != nil {
				return wrapIO("create", fp, ferr)
			}
			f.Close()
		}
	}

	d.logger.Debug("created cpuset group", "name", name)
	return nil
}

// DestroyGroup removes the named cpuset group directory. On a plain
// directory (not a live cgroupfs) the control files CreateGroup created
// are removed first so the directory itself can be removed.
func (d *Driver) DestroyGroup(name string) error {
	if err := d.checkAvailable(); err != nil {
		return err
	}
	path := d.groupPath(name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return wrapIO("stat", path, err)
	}
	if err := os.Remove(path); err != nil {
		for _, file := range []string{cpusFile, memsFile, tasksFile} {
			_ = os.Remove(filepath.Join(path, file))
		}
		if err := os.Remove(path); err != nil {
			return wrapIO("rmdir", path, err)
		}
	}
	d.logger.Debug("destroyed cpuset group", "name", name)
	return nil
}

// WriteCoreList writes ids as a plain comma-separated decimal list (no
// range compaction) to the named group's cpuset.cpus.
func (d *Driver) WriteCoreList(name string, ids []int) error {
	return d.writeList(name, cpusFile, ids)
}

// WriteMemList writes ids as a plain comma-separated decimal list to the
// named group's cpuset.mems.
func (d *Driver) WriteMemList(name string, ids []int) error {
	return d.writeList(name, memsFile, ids)
}

func (d *Driver) writeList(name, file string, ids []int) error {
	if err := d.checkAvailable(); err != nil {
		return err
	}
	path := d.groupPath(name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return wrapIO("stat", path, err)
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	value := strings.Join(parts, ",")

	if err := cgroups.WriteFile(path, file, value); err != nil {
		return wrapIO("write", filepath.Join(path, file), err)
	}
	return nil
}

// AttachPid appends pid's decimal representation to the named group's
// tasks file, flushed before the file descriptor is closed.
func (d *Driver) AttachPid(name string, pid int) error {
	if err := d.checkAvailable(); err != nil {
		return err
	}
	path := d.groupPath(name)
	tasksPath := filepath.Join(path, tasksFile)

	f, err := os.OpenFile(tasksPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return wrapIO("open", tasksPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(strconv.Itoa(pid)); err != nil {
		return wrapIO("write", tasksPath, err)
	}
	if err := w.Flush(); err != nil {
		return wrapIO("flush", tasksPath, err)
	}
	d.logger.Debug("attached pid to cpuset group", "name", name, "pid", pid)
	return nil
}

// PerGroupCoreLoad counts, for each core appearing in any of the named
// groups' cpuset.cpus, how many groups currently claim it. This is the
// task-count-per-core signal the scheduler consumes; it is not kernel
// run-queue depth.
func (d *Driver) PerGroupCoreLoad(names []string) (map[int]int, error) {
	if err := d.checkAvailable(); err != nil {
		return nil, err
	}
	load := make(map[int]int)
	for _, name := range names {
		path := filepath.Join(d.groupPath(name), cpusFile)
		cores, err := d.ReadCoreList(path)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		for _, c := range cores {
			load[c]++
		}
	}
	return load, nil
}
