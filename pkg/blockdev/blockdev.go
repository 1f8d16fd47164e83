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

package blockdev

import (
	"regexp"
	"strings"
	"sync"

	"github.com/storinit-io/storinit/utils/exec"
	"github.com/storinit-io/storinit/utils/log"
)

const s390Plugin = "zfcp"

// Platform describes the storage expectations of the running machine.
// It is re-derived whenever the layer is configured because some of its
// answers depend on the flags.
type Platform struct {
	Arch          string
	Multipath     bool
	BootFromIBFT  bool
	SupportsZFCP  bool
	SupportsFCoE  bool
	SupportsISCSI bool
}

// Layer is this process's handle on the block-device management stack.
// Configure builds it exactly once; repeated calls return the same values.
type Layer struct {
	Executor exec.Executor

	flags     Flags
	platform  Platform
	blacklist *regexp.Regexp
	logLock   sync.Mutex
}

// Configure applies the process-wide flags to the block-device layer and
// returns the configured handle. Plain flag application cannot fail; plugin
// loading and udev triggering log their errors and carry on. Each call
// re-points the process-wide program-log lock at the new layer's mutex, so
// commands must only run through the most recently configured layer.
func Configure(flags Flags, executor exec.Executor) *Layer {
	layer := &Layer{
		Executor: executor,
		flags:    flags,
	}

	// Shared lock for the layer's command logging.
	exec.SetProgramLogLock(&layer.logLock)

	if flags.TargetIsImage {
		log.Info("Image install: LVM metadata backups are disabled")
	}

	// Platform setup depends on flags, re-initialize it.
	layer.platform = platformFromFlags(flags)

	// Load plugins.
	if IsS390() {
		layer.loadPluginS390()
	}

	// Set the blacklist.
	if len(flags.DeviceNameBlacklist) > 0 {
		re, err := regexp.Compile(strings.Join(flags.DeviceNameBlacklist, "|"))
		if err != nil {
			log.Warnf("device name blacklist %s error %v", strings.Join(flags.DeviceNameBlacklist, "|"), err)
		} else {
			layer.blacklist = re
		}
	}

	// We need this so all the /dev/disk/* stuff is set up.
	layer.UdevTrigger()

	return layer
}

func platformFromFlags(flags Flags) Platform {
	arch := MachineArch()
	return Platform{
		Arch:          arch,
		Multipath:     flags.MultipathFriendlyNames,
		BootFromIBFT:  flags.IBFT,
		SupportsZFCP:  strings.HasPrefix(arch, "s390"),
		SupportsFCoE:  !strings.HasPrefix(arch, "s390"),
		SupportsISCSI: true,
	}
}

// Flags returns the flags the layer was configured with.
func (l *Layer) Flags() Flags {
	return l.flags
}

// Platform returns the platform descriptor derived from the flags.
func (l *Layer) Platform() Platform {
	return l.platform
}

// Blacklisted reports whether a device name is hidden from discovery.
func (l *Layer) Blacklisted(name string) bool {
	if l.blacklist == nil {
		return false
	}
	return l.blacklist.MatchString(name)
}

// UdevTrigger replays a change event for every block device so that the
// /dev/disk/* symlink trees are populated.
func (l *Layer) UdevTrigger() {
	if err := l.Executor.ExecuteCommand("udevadm", "trigger", "--subsystem-match=block", "--action=change"); err != nil {
		log.Warnf("udev trigger failed: %v", err)
		return
	}
	if err := l.Executor.ExecuteCommand("udevadm", "settle"); err != nil {
		log.Warnf("udev settle failed: %v", err)
	}
}

// loadPluginS390 makes the s390 device support available.
func (l *Layer) loadPluginS390() {
	// Don't load the plugin in a dir installation.
	if l.flags.TargetIsDirectory {
		return
	}

	// Is the plugin loaded? We are done then.
	if l.ModuleLoaded(s390Plugin) {
		return
	}

	if err := l.Executor.ExecuteCommand("modprobe", s390Plugin); err != nil {
		log.Warnf("load plugin %s failed: %v", s390Plugin, err)
	}
}

// ModuleLoaded reports whether a kernel module shows up in lsmod.
func (l *Layer) ModuleLoaded(name string) bool {
	out, err := l.Executor.ExecuteCommandWithOutput("lsmod")
	if err != nil {
		log.Warnf("exec lsmod failed: %v", err)
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == name {
			return true
		}
	}
	return false
}
