package cli

import (
	"log/slog"

	"github.com/cchan/xlsynth/internal/harness"
	"github.com/cchan/xlsynth/internal/store"
)

// openRecorder opens the run history at path. It returns a nil recorder
// when path is empty and no override is set. The returned close function
// is always safe to call.
func openRecorder(path string, override *harness.Recorder) (*harness.Recorder, func(), error) {
	if override != nil {
		return override, func() {}, nil
	}
	if path == "" {
		return nil, func() {}, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
	return harness.NewRecorder(st), closeStore, nil
}
