/*
   Copyright @ 2023 storinit authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package iscsi

import (
	"github.com/storinit-io/storinit/utils/exec"
	"github.com/storinit-io/storinit/utils/log"
)

// Manager restarts iSCSI discovery on the host. Errors are logged, not
// returned: a host without iSCSI hardware is not a failure.
type Manager struct {
	Executor exec.Executor
	// IBFT enables logging into targets recorded in the iSCSI boot
	// firmware table.
	IBFT bool

	started bool
}

func NewManager(executor exec.Executor, ibft bool) *Manager {
	return &Manager{
		Executor: executor,
		IBFT:     ibft,
	}
}

// Startup brings up the iSCSI initiator and re-discovers firmware targets.
// Safe to call on every reset; the daemon is only spawned once.
func (m *Manager) Startup() {
	if !m.started {
		if err := m.Executor.ExecuteCommand("modprobe", "-a", "iscsi_tcp"); err != nil {
			log.Warnf("load iscsi_tcp failed: %v", err)
		}
		if err := m.Executor.ExecuteCommand("iscsid"); err != nil {
			log.Warnf("start iscsid failed: %v", err)
			return
		}
		m.started = true
	}

	if m.IBFT {
		// Log into the targets recorded by the boot firmware.
		if _, err := m.Executor.ExecuteCommandWithCombinedOutput("iscsiadm", "-m", "fw", "-l"); err != nil {
			log.Warnf("ibft firmware login failed: %v", err)
		}
	}

	if _, err := m.Executor.ExecuteCommandWithCombinedOutput("iscsiadm", "-m", "session", "--rescan"); err != nil {
		log.Debugf("no iscsi sessions to rescan: %v", err)
	}
}
