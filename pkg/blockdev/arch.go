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
	"strings"

	"golang.org/x/sys/unix"
)

// MachineArch returns the machine hardware name as reported by uname(2).
func MachineArch() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Machine[:])
}

// IsS390 reports whether this host is an s390/s390x machine.
func IsS390() bool {
	return strings.HasPrefix(MachineArch(), "s390")
}
