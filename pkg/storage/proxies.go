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

// InitializationMode tells the discovery how existing partitions should be
// cleared before installation.
type InitializationMode int32

const (
	// ClearLinux removes existing Linux partitions.
	ClearLinux InitializationMode = iota
	// ClearAll removes every existing partition.
	ClearAll
	// ClearNone preserves all existing partitions.
	ClearNone
	// ClearList removes only the explicitly listed partitions.
	ClearList
)

// DiskSelection is the configuration service exposing which disks are
// selected or ignored for partitioning.
type DiskSelection interface {
	SelectedDisks() ([]string, error)
	IgnoredDisks() ([]string, error)
	SetSelectedDisks(disks []string) error
}

// DiskInitialization is the configuration service exposing how existing
// partitions and labels should be cleared or initialized.
type DiskInitialization interface {
	InitializationMode() (InitializationMode, error)
	DrivesToClear() ([]string, error)
	DevicesToClear() ([]string, error)
	InitializeLabelsEnabled() (bool, error)
	FormatUnrecognizedEnabled() (bool, error)
}

// AutoPartitioning is the configuration service exposing the automatic
// partitioning request.
type AutoPartitioning interface {
	Enabled() (bool, error)
	FilesystemType() (string, error)
}

// ModuleReloader asks a hardware-discovery service to reload its kernel
// module. Fire-and-forget: the call blocks until the service answers but
// carries no result beyond the error.
type ModuleReloader interface {
	ReloadModule() error
}
