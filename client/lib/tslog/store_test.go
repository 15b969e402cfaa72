package tslog

import (
	"testing"
	"time"

	"github.com/shoenig/test/must"

	"github.com/cpusetiso/agent/helper/testlog"
)

func TestStore_RecordAndLatest(t *testing.T) {
	store, err := Open(t.TempDir(), 5, testlog.HCLogger(t))
	must.NoError(t, err)
	defer store.Close()

	// start of a 5-minute bucket, so all three samples share it
	base := time.Unix(1_699_999_800, 0)
	must.NoError(t, store.recordSampleAt(base, 1))
	must.NoError(t, store.recordSampleAt(base.Add(time.Minute), 2))
	must.NoError(t, store.recordSampleAt(base.Add(2*time.Minute), 2))

	samples, err := store.Latest()
	must.NoError(t, err)
	must.Len(t, 3, samples)
	must.Eq(t, 1, samples[0].CPUCount)
	must.Eq(t, 2, samples[1].CPUCount)
	must.Eq(t, 2, samples[2].CPUCount)
}

func TestStore_Latest_Empty(t *testing.T) {
	store, err := Open(t.TempDir(), 5, nil)
	must.NoError(t, err)
	defer store.Close()

	samples, err := store.Latest()
	must.NoError(t, err)
	must.Len(t, 0, samples)
}

func TestStore_BucketsSeparateWindows(t *testing.T) {
	store, err := Open(t.TempDir(), 5, nil)
	must.NoError(t, err)
	defer store.Close()

	base := time.Unix(1_700_000_000, 0)
	must.NoError(t, store.recordSampleAt(base, 1))
	must.NoError(t, store.recordSampleAt(base.Add(10*time.Minute), 9))

	samples, err := store.Latest()
	must.NoError(t, err)
	must.Len(t, 1, samples)
	must.Eq(t, 9, samples[0].CPUCount)
}

func TestStore_RejectsNonPositiveWindow(t *testing.T) {
	_, err := Open(t.TempDir(), 0, nil)
	must.Error(t, err)
}
