package sleeptimer

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/lecternapp/lectern/internal/errors"
)

// osCommand resolves an OS power action to a platform command.
func osCommand(action Action) (name string, args []string, err error) {
	switch runtime.GOOS {
	case "windows":
		switch action {
		case ActionSleep:
			return "rundll32.exe", []string{"powrprof.dll,SetSuspendState", "0,1,0"}, nil
		case ActionHibernate:
			return "shutdown", []string{"/h"}, nil
		case ActionShutdown:
			return "shutdown", []string{"/s", "/t", "0"}, nil
		}
	case "darwin":
		switch action {
		case ActionSleep, ActionHibernate:
			return "pmset", []string{"sleepnow"}, nil
		case ActionShutdown:
			return "shutdown", []string{"-h", "now"}, nil
		}
	default: // linux and the other unixes with systemd
		switch action {
		case ActionSleep:
			return "systemctl", []string{"suspend"}, nil
		case ActionHibernate:
			return "systemctl", []string{"hibernate"}, nil
		case ActionShutdown:
			return "systemctl", []string{"poweroff"}, nil
		}
	}
	return "", nil, errors.OsAction("no command for action " + string(action) + " on " + runtime.GOOS)
}

// execRunner launches the command without waiting for it to finish; a power
// command may outlive the application entirely.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
