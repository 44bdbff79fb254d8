package datamanager

import (
	"os"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/mhellwig/mapdeck/pkg/errors"
	"github.com/mhellwig/mapdeck/pkg/fsutil"
)

// schedulingState is the persisted auto-update state. It survives
// process restarts so the first timer interval after startup can be
// chosen correctly.
type schedulingState struct {
	LastManifestRefresh time.Time `yaml:"last_manifest_refresh"`
}

// loadState reads the time of the last successful manifest refresh. A
// missing file yields the zero time.
func loadState(fs afero.Fs, path string) (time.Time, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, errors.Wrapf(err, "failed to read state file %s", path)
	}

	var st schedulingState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse state file %s", path)
	}
	return st.LastManifestRefresh, nil
}

// saveState atomically persists the time of the last successful
// manifest refresh.
func saveState(fs afero.Fs, path string, t time.Time) error {
	data, err := yaml.Marshal(schedulingState{LastManifestRefresh: t.UTC()})
	if err != nil {
		return errors.Wrap(err, "failed to encode state")
	}
	return fsutil.WriteFileAtomic(fs, path, data, fsutil.FileModeDefault)
}
