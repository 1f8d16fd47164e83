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

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anuvu/disko"
	"github.com/anuvu/disko/linux"
	"github.com/prometheus/procfs"

	"github.com/storinit-io/storinit"
	"github.com/storinit-io/storinit/pkg/blockdev"
	"github.com/storinit-io/storinit/utils"
	"github.com/storinit-io/storinit/utils/log"
	"github.com/storinit-io/storinit/utils/mutx"
)

const StorageMutex = "StorageMutex"

// Model is the storage model: the in-memory representation of the
// discovered block devices. Exactly the operations this subsystem consumes;
// tests substitute a double.
type Model interface {
	// Shutdown tears the device graph down. Idempotent.
	Shutdown()
	// Reset re-scans the hardware and rebuilds the device graph. A
	// recoverable failure is reported as a *Error.
	Reset() error

	// Disks lists the names of the discovered disks.
	Disks() []string
	// Config returns the discovery configuration owned by the model.
	Config() *DiscoveryConfig

	SetIgnoredDisks(disks []string)
	SetExclusiveDisks(disks []string)

	DefaultFSType() string
	SetDefaultFSType(fstype string)
	SetDefaultBootFSType(fstype string)
	DefaultLUKSVersion() string
	SetDefaultLUKSVersion(version string)
}

// DiskScanner is the slice of the disko system interface the model needs.
type DiskScanner interface {
	ScanAllDisks(filter disko.DiskFilter) (disko.DiskSet, error)
}

// InstallerStorage implements Model on top of the disko block-device
// library. Single-owner: callers must not run two resets concurrently.
type InstallerStorage struct {
	Scanner DiskScanner
	Layer   *blockdev.Layer
	Mutex   *mutx.GlobalLocks

	config             DiscoveryConfig
	ignoredDisks       []string
	exclusiveDisks     []string
	defaultFSType      string
	defaultBootFSType  string
	defaultLUKSVersion string
	disks              disko.DiskSet
}

var _ Model = &InstallerStorage{}

// NewInstallerStorage constructs an empty storage model bound to the
// configured block-device layer.
func NewInstallerStorage(layer *blockdev.Layer) *InstallerStorage {
	return &InstallerStorage{
		Scanner:            linux.System(),
		Layer:              layer,
		Mutex:              mutx.NewGlobalLocks(),
		defaultFSType:      storinit.DefaultFSType,
		defaultBootFSType:  storinit.DefaultFSType,
		defaultLUKSVersion: storinit.DefaultLUKSVersion,
		disks:              disko.DiskSet{},
	}
}

// Shutdown drops the device graph. Mounts still held on discovered disks
// are logged so a stuck teardown shows up in the program log.
func (s *InstallerStorage) Shutdown() {
	if len(s.disks) == 0 {
		return
	}

	mounts, err := procfs.GetMounts()
	if err != nil {
		log.Warnf("failed to read mounts: %v", err)
	}
	for _, m := range mounts {
		for _, d := range s.disks {
			if strings.HasPrefix(m.Source, d.Path) {
				log.Warnf("device %s still mounted on %s during shutdown", m.Source, m.MountPoint)
			}
		}
	}

	s.disks = disko.DiskSet{}
	log.Info("storage model was shut down")
}

// Reset re-scans the hardware and rebuilds the device graph, honoring the
// ignored and exclusive disk lists and the layer's device-name blacklist.
func (s *InstallerStorage) Reset() error {
	if !s.Mutex.TryAcquire(StorageMutex) {
		return fmt.Errorf("storage reset is already in progress")
	}
	defer s.Mutex.Release(StorageMutex)

	disks, err := s.Scanner.ScanAllDisks(s.scanFilter())
	if err != nil {
		return newError("reset", err)
	}

	s.disks = disks
	log.Infof("discovered %d disks: %s", len(disks), strings.Join(s.Disks(), ","))
	return nil
}

func (s *InstallerStorage) scanFilter() disko.DiskFilter {
	return func(d disko.Disk) bool {
		if d.Size == 0 {
			return false
		}
		if s.Layer != nil && s.Layer.Blacklisted(d.Name) {
			return false
		}
		if utils.ContainsString(s.ignoredDisks, d.Name) {
			return false
		}
		if len(s.exclusiveDisks) > 0 && !utils.ContainsString(s.exclusiveDisks, d.Name) {
			return false
		}
		return true
	}
}

func (s *InstallerStorage) Disks() []string {
	names := make([]string, 0, len(s.disks))
	for name := range s.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *InstallerStorage) Config() *DiscoveryConfig {
	return &s.config
}

func (s *InstallerStorage) SetIgnoredDisks(disks []string) {
	s.ignoredDisks = disks
}

func (s *InstallerStorage) SetExclusiveDisks(disks []string) {
	s.exclusiveDisks = disks
}

func (s *InstallerStorage) DefaultFSType() string {
	return s.defaultFSType
}

func (s *InstallerStorage) SetDefaultFSType(fstype string) {
	s.defaultFSType = fstype
}

func (s *InstallerStorage) SetDefaultBootFSType(fstype string) {
	s.defaultBootFSType = fstype
}

func (s *InstallerStorage) DefaultBootFSType() string {
	return s.defaultBootFSType
}

func (s *InstallerStorage) DefaultLUKSVersion() string {
	return s.defaultLUKSVersion
}

func (s *InstallerStorage) SetDefaultLUKSVersion(version string) {
	s.defaultLUKSVersion = version
}
