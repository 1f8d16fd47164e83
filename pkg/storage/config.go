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

package storage

// DiscoveryConfig drives how the reset operation treats existing
// partitions and labels. It is owned by the storage model and refreshed
// from the disk-initialization service on every reset.
type DiscoveryConfig struct {
	// ClearPartMode selects which existing partitions get cleared.
	ClearPartMode InitializationMode
	// ClearPartDrives limits clearing to these drives.
	ClearPartDrives []string
	// ClearPartDevices limits clearing to these devices.
	ClearPartDevices []string
	// InitializeDisks writes a fresh disk label onto unformatted disks.
	InitializeDisks bool
	// ZeroMBR zeroes boot sectors the discovery does not recognize.
	ZeroMBR bool
}
