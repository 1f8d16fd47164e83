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

package storinit

const (
	// Version project
	Version = "beta"

	// DefaultFSType is used when the installer configuration does not name one.
	DefaultFSType = "ext4"
	// DefaultLUKSVersion is used when the installer configuration does not name one.
	DefaultLUKSVersion = "luks2"

	// TargetHardware installs onto real block devices.
	TargetHardware = "hardware"
	// TargetImage installs into a disk image file.
	TargetImage = "image"
	// TargetDirectory installs into a directory tree.
	TargetDirectory = "directory"
)
