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
	"github.com/storinit-io/storinit/pkg/configuration"
)

// Flags is the behavior of the block-device layer for the whole process.
// It is built once at startup and never mutated afterwards.
type Flags struct {
	// Debug enables verbose logging of every storage helper invocation.
	Debug bool
	// LVMMetadataBackup controls whether LVM writes metadata backups
	// into the host's /etc/lvm. Disabled on image installs so image
	// metadata never lands on the build host.
	LVMMetadataBackup bool
	// AutoDevUpdates lets the layer refresh device nodes after format
	// operations without an explicit rescan.
	AutoDevUpdates bool
	// SELinuxResetFcon resets the SELinux file context on newly created
	// filesystems.
	SELinuxResetFcon bool
	// KeepEmptyExtPartitions preserves empty extended partitions during
	// partition table manipulation.
	KeepEmptyExtPartitions bool
	// DiscardNew issues a discard when formatting new devices.
	DiscardNew bool

	SELinux                bool
	DMRaid                 bool
	IBFT                   bool
	MultipathFriendlyNames bool
	AllowImperfectDevices  bool

	// DeviceNameBlacklist hides matching device names from discovery.
	DeviceNameBlacklist []string

	TargetIsImage     bool
	TargetIsDirectory bool
}

// InstallerFlags derives the process-wide flags from the static installer
// configuration.
func InstallerFlags() Flags {
	return Flags{
		// always enable the debug mode when in the installer mode so that we
		// have more data in the logs for rare cases that are hard to reproduce
		Debug: true,

		LVMMetadataBackup:      !configuration.IsImage(),
		AutoDevUpdates:         true,
		SELinuxResetFcon:       true,
		KeepEmptyExtPartitions: false,
		DiscardNew:             true,

		SELinux:                configuration.SELinux(),
		DMRaid:                 configuration.DMRaid(),
		IBFT:                   configuration.IBFT(),
		MultipathFriendlyNames: configuration.MultipathFriendlyNames(),
		AllowImperfectDevices:  configuration.AllowImperfectDevices(),

		DeviceNameBlacklist: configuration.DeviceNameBlacklist(),

		TargetIsImage:     configuration.IsImage(),
		TargetIsDirectory: configuration.IsDirectory(),
	}
}
