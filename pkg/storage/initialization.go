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
	"strings"
	"sync"
	"time"

	"github.com/storinit-io/storinit/pkg/blockdev"
	"github.com/storinit-io/storinit/utils"
	"github.com/storinit-io/storinit/utils/log"
)

// RetryDecision is the answer of the error-handling policy for a
// recoverable storage error.
type RetryDecision int

const (
	// DecisionRetry runs the full reset sequence again.
	DecisionRetry RetryDecision = iota
	// DecisionAbort propagates the error and stops the initialization.
	DecisionAbort
)

// ErrorHandler decides what to do with a recoverable storage error. It may
// block on a human answer; its decision is the only exit besides success.
type ErrorHandler func(err error) RetryDecision

// Starter restarts iSCSI discovery.
type Starter interface {
	Startup()
}

// Initialization triggers reported to registered notice channels.
const (
	TriggerAttempt     = "reset-attempt"
	TriggerFailure     = "reset-failure"
	TriggerInitialized = "initialized"
)

// InitEvent is delivered to notice channels as the reset loop progresses.
type InitEvent struct {
	Trigger   string
	TriggerAt time.Time
}

// Initializer brings a storage model into a state consistent with the
// current hardware and the configuration services.
type Initializer struct {
	DiskSelection      DiskSelection
	DiskInitialization DiskInitialization
	FCOE               ModuleReloader
	ZFCP               ModuleReloader
	ISCSI              Starter

	// TargetIsImage skips the hardware-discovery reloads entirely.
	TargetIsImage bool
	// S390 gates the zFCP reload.
	S390 bool

	noticeLock  sync.Mutex
	noticeChans []chan<- *InitEvent
	initialized bool
}

// NewInitializer wires the initializer from the configured block-device
// layer and the configuration-service proxies.
func NewInitializer(layer *blockdev.Layer, diskSelection DiskSelection, diskInit DiskInitialization,
	fcoe ModuleReloader, zfcp ModuleReloader, iscsi Starter) *Initializer {
	return &Initializer{
		DiskSelection:      diskSelection,
		DiskInitialization: diskInit,
		FCOE:               fcoe,
		ZFCP:               zfcp,
		ISCSI:              iscsi,
		TargetIsImage:      layer.Flags().TargetIsImage,
		S390:               layer.Platform().SupportsZFCP,
	}
}

// RegisterNoticeChan subscribes a channel to initialization events.
// Delivery is best effort; a full channel drops the event. Safe to call
// while an initialization is running; events before the registration are
// missed.
func (i *Initializer) RegisterNoticeChan(c chan<- *InitEvent) {
	i.noticeLock.Lock()
	defer i.noticeLock.Unlock()
	i.noticeChans = append(i.noticeChans, c)
}

func (i *Initializer) notice(trigger string) {
	i.noticeLock.Lock()
	defer i.noticeLock.Unlock()
	for _, c := range i.noticeChans {
		select {
		case c <- &InitEvent{Trigger: trigger, TriggerAt: time.Now()}:
		default:
		}
	}
}

// Initialized reports whether the last initialization run completed.
func (i *Initializer) Initialized() bool {
	return i.initialized
}

// CreateStorage builds the storage model and applies the configured
// defaults. Empty values fall back to the library defaults.
func CreateStorage(layer *blockdev.Layer, fsType, luksVersion string) *InstallerStorage {
	storage := NewInstallerStorage(layer)

	// Set the default filesystem type.
	if fsType != "" {
		storage.SetDefaultFSType(fsType)
	}

	// Set the default LUKS version.
	if luksVersion != "" {
		storage.SetDefaultLUKSVersion(luksVersion)
	}

	return storage
}

// ApplyKickstartDefaults overwrites the model's default filesystem types
// with the type requested by the automatic partitioning service, when one
// is requested.
func ApplyKickstartDefaults(model Model, autoPart AutoPartitioning) error {
	enabled, err := autoPart.Enabled()
	if err != nil {
		return err
	}
	fstype, err := autoPart.FilesystemType()
	if err != nil {
		return err
	}

	if enabled && fstype != "" {
		model.SetDefaultFSType(fstype)
		model.SetDefaultBootFSType(fstype)
	}
	return nil
}

// InitializeStorage shuts the model down and resets it until the reset
// succeeds or the handler aborts. Only recoverable storage errors reach
// the handler; anything else propagates immediately.
func (i *Initializer) InitializeStorage(model Model, handler ErrorHandler) error {
	i.initialized = false
	model.Shutdown()

	for {
		i.notice(TriggerAttempt)
		err := i.ResetStorage(model)
		if err == nil {
			break
		}
		if !IsStorageError(err) {
			return err
		}

		i.notice(TriggerFailure)
		log.Errorf("storage reset failed: %v", err)
		if handler(err) == DecisionAbort {
			return err
		}
	}

	i.initialized = true
	i.notice(TriggerInitialized)
	return nil
}

// ResetStorage runs one full reset sequence: refresh the discovery
// configuration, apply the disk selection, reload the hardware-discovery
// modules and re-scan.
func (i *Initializer) ResetStorage(model Model) error {
	// Update the config.
	if err := i.updateDiscoveryConfig(model.Config()); err != nil {
		return err
	}

	// Set the ignored and exclusive disks.
	ignored, err := i.DiskSelection.IgnoredDisks()
	if err != nil {
		return err
	}
	selected, err := i.DiskSelection.SelectedDisks()
	if err != nil {
		return err
	}
	model.SetIgnoredDisks(ignored)
	model.SetExclusiveDisks(selected)

	// Reload additional modules.
	if !i.TargetIsImage {
		i.ISCSI.Startup()

		if err := i.FCOE.ReloadModule(); err != nil {
			return err
		}

		if i.S390 {
			if err := i.ZFCP.ReloadModule(); err != nil {
				return err
			}
		}
	}

	// Do the reset.
	return model.Reset()
}

func (i *Initializer) updateDiscoveryConfig(config *DiscoveryConfig) error {
	mode, err := i.DiskInitialization.InitializationMode()
	if err != nil {
		return err
	}
	drives, err := i.DiskInitialization.DrivesToClear()
	if err != nil {
		return err
	}
	devices, err := i.DiskInitialization.DevicesToClear()
	if err != nil {
		return err
	}
	initializeDisks, err := i.DiskInitialization.InitializeLabelsEnabled()
	if err != nil {
		return err
	}
	zeroMBR, err := i.DiskInitialization.FormatUnrecognizedEnabled()
	if err != nil {
		return err
	}

	config.ClearPartMode = mode
	config.ClearPartDrives = drives
	config.ClearPartDevices = devices
	config.InitializeDisks = initializeDisks
	config.ZeroMBR = zeroMBR
	return nil
}

// SelectAllDisksByDefault selects every discovered disk that is not
// explicitly ignored, but only when no selection exists yet. Returns the
// resulting selection.
func (i *Initializer) SelectAllDisksByDefault(model Model) ([]string, error) {
	selected, err := i.DiskSelection.SelectedDisks()
	if err != nil {
		return nil, err
	}
	if len(selected) > 0 {
		return selected, nil
	}

	ignored, err := i.DiskSelection.IgnoredDisks()
	if err != nil {
		return nil, err
	}

	selected = utils.SliceSubSlice(model.Disks(), ignored)

	if err := i.DiskSelection.SetSelectedDisks(selected); err != nil {
		return nil, err
	}
	log.Debugf("Selecting all disks by default: %s", strings.Join(selected, ","))
	return selected, nil
}
