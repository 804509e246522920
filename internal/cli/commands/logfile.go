package commands

import (
	"os"
	"path/filepath"

	"github.com/taskwheel/taskwheel/internal/infra"
)

// openLogFile ensures the CLI's config/data/cache/log directories exist
// and returns an append-only handle to taskwheel.log under
// infra.Paths.LogDir, the resolved per-OS log directory. The caller owns
// closing it.
func openLogFile() (*os.File, error) {
	if err := infra.EnsureDirs(); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(infra.Paths.LogDir, "taskwheel.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
