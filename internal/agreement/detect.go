package agreement

import (
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrBackendRequired is returned by Detect when no computation backend is
// available and the deployment forbids the simulation fallback.
var ErrBackendRequired = errors.New("assessment backend required but not available")

// Detect picks the runner for this process: the external command when it
// resolves, the simulated stand-in otherwise. The fallback mirrors the
// historical behavior of degrading silently on a missing backend, except it
// is not silent: it logs and every simulated payload carries a note.
func Detect(command string, requireBackend bool, log *zap.Logger) (Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if parts := strings.Fields(command); len(parts) > 0 {
		if _, err := exec.LookPath(parts[0]); err == nil {
			log.Info("using external assessment backend", zap.String("command", command))
			return &ExternalRunner{Command: parts[0], Args: parts[1:]}, nil
		}
		log.Warn("assessment command not found", zap.String("command", parts[0]))
	}

	if requireBackend {
		return nil, ErrBackendRequired
	}
	log.Warn("falling back to simulated assessment; results will be fabricated and labelled as such")
	return &SimulatedRunner{StepDelay: time.Second}, nil
}
