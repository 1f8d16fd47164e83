package iscsi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeExecutor struct {
	commands [][]string
}

func (f *fakeExecutor) record(command string, arg ...string) {
	f.commands = append(f.commands, append([]string{command}, arg...))
}

func (f *fakeExecutor) ExecuteCommand(command string, arg ...string) error {
	f.record(command, arg...)
	return nil
}

func (f *fakeExecutor) ExecuteCommandWithEnv(env []string, command string, arg ...string) error {
	f.record(command, arg...)
	return nil
}

func (f *fakeExecutor) ExecuteCommandWithOutput(command string, arg ...string) (string, error) {
	f.record(command, arg...)
	return "", nil
}

func (f *fakeExecutor) ExecuteCommandWithCombinedOutput(command string, arg ...string) (string, error) {
	f.record(command, arg...)
	return "", nil
}

func (f *fakeExecutor) ExecuteCommandWithTimeout(timeout time.Duration, command string, arg ...string) (string, error) {
	f.record(command, arg...)
	return "", nil
}

func commandNames(commands [][]string) []string {
	names := []string{}
	for _, c := range commands {
		names = append(names, c[0])
	}
	return names
}

func TestStartupSpawnsDaemonOnce(t *testing.T) {
	executor := &fakeExecutor{}
	manager := NewManager(executor, false)

	manager.Startup()
	assert.Equal(t, []string{"modprobe", "iscsid", "iscsiadm"}, commandNames(executor.commands))

	executor.commands = nil
	manager.Startup()
	assert.Equal(t, []string{"iscsiadm"}, commandNames(executor.commands))
}

func TestStartupWithIBFT(t *testing.T) {
	executor := &fakeExecutor{}
	manager := NewManager(executor, true)

	manager.Startup()
	assert.Equal(t, []string{"modprobe", "iscsid", "iscsiadm", "iscsiadm"}, commandNames(executor.commands))
	assert.Equal(t, []string{"iscsiadm", "-m", "fw", "-l"}, executor.commands[2])
}
