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

// Package services holds the D-Bus proxies for the installer configuration
// modules. Every proxy is a thin typed wrapper over one remote object; the
// callers treat a proxy failure as fatal.
package services

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/storinit-io/storinit/pkg/storage"
)

const (
	// BusName is the well-known name of the storage configuration service.
	BusName = "io.storinit.Modules.Storage"

	diskSelectionPath      = "/io/storinit/Modules/Storage/DiskSelection"
	diskInitializationPath = "/io/storinit/Modules/Storage/DiskInitialization"
	autoPartitioningPath   = "/io/storinit/Modules/Storage/AutoPartitioning"
	fcoePath               = "/io/storinit/Modules/Storage/FCOE"
	zfcpPath               = "/io/storinit/Modules/Storage/ZFCP"

	diskSelectionIface      = BusName + ".DiskSelection"
	diskInitializationIface = BusName + ".DiskInitialization"
	autoPartitioningIface   = BusName + ".AutoPartitioning"
	fcoeIface               = BusName + ".FCOE"
	zfcpIface               = BusName + ".ZFCP"
)

var (
	_ storage.DiskSelection      = &DiskSelectionProxy{}
	_ storage.DiskInitialization = &DiskInitializationProxy{}
	_ storage.AutoPartitioning   = &AutoPartitioningProxy{}
	_ storage.ModuleReloader     = &ModuleReloaderProxy{}
)

// Connection is the subset of dbus.Conn the proxies need.
type Connection interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// Connect opens the system bus the configuration modules live on.
func Connect() (*dbus.Conn, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the system bus: %w", err)
	}
	return conn, nil
}

func getProperty(obj dbus.BusObject, name string, out interface{}) error {
	variant, err := obj.GetProperty(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := variant.Store(out); err != nil {
		return fmt.Errorf("unexpected value of %s: %w", name, err)
	}
	return nil
}

// DiskSelectionProxy implements storage.DiskSelection over D-Bus.
type DiskSelectionProxy struct {
	obj dbus.BusObject
}

func NewDiskSelectionProxy(conn Connection) *DiskSelectionProxy {
	return &DiskSelectionProxy{obj: conn.Object(BusName, diskSelectionPath)}
}

func (p *DiskSelectionProxy) SelectedDisks() ([]string, error) {
	var disks []string
	if err := getProperty(p.obj, diskSelectionIface+".SelectedDisks", &disks); err != nil {
		return nil, err
	}
	return disks, nil
}

func (p *DiskSelectionProxy) IgnoredDisks() ([]string, error) {
	var disks []string
	if err := getProperty(p.obj, diskSelectionIface+".IgnoredDisks", &disks); err != nil {
		return nil, err
	}
	return disks, nil
}

func (p *DiskSelectionProxy) SetSelectedDisks(disks []string) error {
	call := p.obj.Call(diskSelectionIface+".SetSelectedDisks", 0, disks)
	if call.Err != nil {
		return fmt.Errorf("failed to set the selected disks: %w", call.Err)
	}
	return nil
}

// DiskInitializationProxy implements storage.DiskInitialization over D-Bus.
type DiskInitializationProxy struct {
	obj dbus.BusObject
}

func NewDiskInitializationProxy(conn Connection) *DiskInitializationProxy {
	return &DiskInitializationProxy{obj: conn.Object(BusName, diskInitializationPath)}
}

func (p *DiskInitializationProxy) InitializationMode() (storage.InitializationMode, error) {
	var mode int32
	if err := getProperty(p.obj, diskInitializationIface+".InitializationMode", &mode); err != nil {
		return storage.ClearNone, err
	}
	return storage.InitializationMode(mode), nil
}

func (p *DiskInitializationProxy) DrivesToClear() ([]string, error) {
	var drives []string
	if err := getProperty(p.obj, diskInitializationIface+".DrivesToClear", &drives); err != nil {
		return nil, err
	}
	return drives, nil
}

func (p *DiskInitializationProxy) DevicesToClear() ([]string, error) {
	var devices []string
	if err := getProperty(p.obj, diskInitializationIface+".DevicesToClear", &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (p *DiskInitializationProxy) InitializeLabelsEnabled() (bool, error) {
	var enabled bool
	if err := getProperty(p.obj, diskInitializationIface+".InitializeLabelsEnabled", &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

func (p *DiskInitializationProxy) FormatUnrecognizedEnabled() (bool, error) {
	var enabled bool
	if err := getProperty(p.obj, diskInitializationIface+".FormatUnrecognizedEnabled", &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// AutoPartitioningProxy implements storage.AutoPartitioning over D-Bus.
type AutoPartitioningProxy struct {
	obj dbus.BusObject
}

func NewAutoPartitioningProxy(conn Connection) *AutoPartitioningProxy {
	return &AutoPartitioningProxy{obj: conn.Object(BusName, autoPartitioningPath)}
}

func (p *AutoPartitioningProxy) Enabled() (bool, error) {
	var enabled bool
	if err := getProperty(p.obj, autoPartitioningIface+".Enabled", &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

func (p *AutoPartitioningProxy) FilesystemType() (string, error) {
	var fstype string
	if err := getProperty(p.obj, autoPartitioningIface+".FilesystemType", &fstype); err != nil {
		return "", err
	}
	return fstype, nil
}

// ModuleReloaderProxy implements storage.ModuleReloader over D-Bus.
type ModuleReloaderProxy struct {
	obj   dbus.BusObject
	iface string
}

// NewFCOEProxy returns the reloader for the FCoE discovery service.
func NewFCOEProxy(conn Connection) *ModuleReloaderProxy {
	return &ModuleReloaderProxy{obj: conn.Object(BusName, fcoePath), iface: fcoeIface}
}

// NewZFCPProxy returns the reloader for the zFCP discovery service.
func NewZFCPProxy(conn Connection) *ModuleReloaderProxy {
	return &ModuleReloaderProxy{obj: conn.Object(BusName, zfcpPath), iface: zfcpIface}
}

func (p *ModuleReloaderProxy) ReloadModule() error {
	call := p.obj.Call(p.iface+".ReloadModule", 0)
	if call.Err != nil {
		return fmt.Errorf("failed to reload the kernel module: %w", call.Err)
	}
	return nil
}
