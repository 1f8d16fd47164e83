package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeModel struct {
	config         DiscoveryConfig
	ignoredDisks   []string
	exclusiveDisks []string
	disks          []string

	defaultFSType      string
	defaultBootFSType  string
	defaultLUKSVersion string

	shutdownCalls int
	resetCalls    int
	resetErrs     []error
}

func (m *fakeModel) Shutdown() {
	m.shutdownCalls++
}

func (m *fakeModel) Reset() error {
	m.resetCalls++
	if len(m.resetErrs) == 0 {
		return nil
	}
	err := m.resetErrs[0]
	m.resetErrs = m.resetErrs[1:]
	return err
}

func (m *fakeModel) Disks() []string                      { return m.disks }
func (m *fakeModel) Config() *DiscoveryConfig             { return &m.config }
func (m *fakeModel) SetIgnoredDisks(disks []string)       { m.ignoredDisks = disks }
func (m *fakeModel) SetExclusiveDisks(disks []string)     { m.exclusiveDisks = disks }
func (m *fakeModel) DefaultFSType() string                { return m.defaultFSType }
func (m *fakeModel) SetDefaultFSType(fstype string)       { m.defaultFSType = fstype }
func (m *fakeModel) SetDefaultBootFSType(fstype string)   { m.defaultBootFSType = fstype }
func (m *fakeModel) DefaultLUKSVersion() string           { return m.defaultLUKSVersion }
func (m *fakeModel) SetDefaultLUKSVersion(version string) { m.defaultLUKSVersion = version }

type fakeDiskSelection struct {
	selected []string
	ignored  []string

	setCalls int
}

func (f *fakeDiskSelection) SelectedDisks() ([]string, error) { return f.selected, nil }
func (f *fakeDiskSelection) IgnoredDisks() ([]string, error)  { return f.ignored, nil }
func (f *fakeDiskSelection) SetSelectedDisks(disks []string) error {
	f.setCalls++
	f.selected = disks
	return nil
}

type fakeDiskInitialization struct {
	mode            InitializationMode
	drives          []string
	devices         []string
	initializeDisks bool
	zeroMBR         bool
}

func (f *fakeDiskInitialization) InitializationMode() (InitializationMode, error) {
	return f.mode, nil
}
func (f *fakeDiskInitialization) DrivesToClear() ([]string, error)  { return f.drives, nil }
func (f *fakeDiskInitialization) DevicesToClear() ([]string, error) { return f.devices, nil }
func (f *fakeDiskInitialization) InitializeLabelsEnabled() (bool, error) {
	return f.initializeDisks, nil
}
func (f *fakeDiskInitialization) FormatUnrecognizedEnabled() (bool, error) { return f.zeroMBR, nil }

type fakeReloader struct {
	calls int
}

func (f *fakeReloader) ReloadModule() error {
	f.calls++
	return nil
}

type fakeStarter struct {
	calls int
}

func (f *fakeStarter) Startup() {
	f.calls++
}

type fakeAutoPartitioning struct {
	enabled bool
	fstype  string
}

func (f *fakeAutoPartitioning) Enabled() (bool, error)          { return f.enabled, nil }
func (f *fakeAutoPartitioning) FilesystemType() (string, error) { return f.fstype, nil }

func newTestInitializer() (*Initializer, *fakeDiskSelection, *fakeDiskInitialization, *fakeReloader, *fakeReloader, *fakeStarter) {
	diskSelection := &fakeDiskSelection{}
	diskInit := &fakeDiskInitialization{}
	fcoe := &fakeReloader{}
	zfcp := &fakeReloader{}
	iscsi := &fakeStarter{}

	initializer := &Initializer{
		DiskSelection:      diskSelection,
		DiskInitialization: diskInit,
		FCOE:               fcoe,
		ZFCP:               zfcp,
		ISCSI:              iscsi,
	}
	return initializer, diskSelection, diskInit, fcoe, zfcp, iscsi
}

func TestCreateStorageDefaults(t *testing.T) {
	storage := CreateStorage(nil, "", "")
	assert.Equal(t, "ext4", storage.DefaultFSType())
	assert.Equal(t, "ext4", storage.DefaultBootFSType())
	assert.Equal(t, "luks2", storage.DefaultLUKSVersion())

	storage = CreateStorage(nil, "xfs", "luks1")
	assert.Equal(t, "xfs", storage.DefaultFSType())
	assert.Equal(t, "luks1", storage.DefaultLUKSVersion())
}

func TestApplyKickstartDefaults(t *testing.T) {
	model := &fakeModel{defaultFSType: "ext4", defaultBootFSType: "ext4"}
	err := ApplyKickstartDefaults(model, &fakeAutoPartitioning{enabled: true, fstype: "ext4"})
	assert.NoError(t, err)
	assert.Equal(t, "ext4", model.defaultFSType)
	assert.Equal(t, "ext4", model.defaultBootFSType)

	model = &fakeModel{defaultFSType: "ext4", defaultBootFSType: "ext4"}
	err = ApplyKickstartDefaults(model, &fakeAutoPartitioning{enabled: true, fstype: "xfs"})
	assert.NoError(t, err)
	assert.Equal(t, "xfs", model.defaultFSType)
	assert.Equal(t, "xfs", model.defaultBootFSType)
}

func TestApplyKickstartDefaultsDisabled(t *testing.T) {
	model := &fakeModel{defaultFSType: "ext4", defaultBootFSType: "ext4"}
	err := ApplyKickstartDefaults(model, &fakeAutoPartitioning{enabled: false, fstype: "xfs"})
	assert.NoError(t, err)
	assert.Equal(t, "ext4", model.defaultFSType)
	assert.Equal(t, "ext4", model.defaultBootFSType)

	err = ApplyKickstartDefaults(model, &fakeAutoPartitioning{enabled: true, fstype: ""})
	assert.NoError(t, err)
	assert.Equal(t, "ext4", model.defaultFSType)
}

func TestSelectAllDisksByDefault(t *testing.T) {
	initializer, diskSelection, _, _, _, _ := newTestInitializer()
	diskSelection.ignored = []string{"sdb"}
	model := &fakeModel{disks: []string{"sda", "sdb", "sdc"}}

	selected, err := initializer.SelectAllDisksByDefault(model)
	assert.NoError(t, err)
	assert.Equal(t, []string{"sda", "sdc"}, selected)
	assert.Equal(t, []string{"sda", "sdc"}, diskSelection.selected)
	assert.Equal(t, 1, diskSelection.setCalls)
}

func TestSelectAllDisksByDefaultExistingSelection(t *testing.T) {
	initializer, diskSelection, _, _, _, _ := newTestInitializer()
	diskSelection.selected = []string{"sdc"}
	model := &fakeModel{disks: []string{"sda", "sdb", "sdc"}}

	selected, err := initializer.SelectAllDisksByDefault(model)
	assert.NoError(t, err)
	assert.Equal(t, []string{"sdc"}, selected)
	assert.Equal(t, 0, diskSelection.setCalls)

	// Second call is still a no-op.
	selected, err = initializer.SelectAllDisksByDefault(model)
	assert.NoError(t, err)
	assert.Equal(t, []string{"sdc"}, selected)
	assert.Equal(t, 0, diskSelection.setCalls)
}

func TestInitializeStorageRetries(t *testing.T) {
	initializer, _, _, _, _, _ := newTestInitializer()
	model := &fakeModel{resetErrs: []error{
		newError("reset", errors.New("scan failed")),
		newError("reset", errors.New("scan failed")),
	}}

	handlerCalls := 0
	err := initializer.InitializeStorage(model, func(err error) RetryDecision {
		handlerCalls++
		return DecisionRetry
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, model.shutdownCalls)
	assert.Equal(t, 3, model.resetCalls)
	assert.Equal(t, 2, handlerCalls)
	assert.True(t, initializer.Initialized())
}

func TestInitializeStorageAbort(t *testing.T) {
	initializer, _, _, _, _, _ := newTestInitializer()
	resetErr := newError("reset", errors.New("scan failed"))
	model := &fakeModel{resetErrs: []error{resetErr}}

	err := initializer.InitializeStorage(model, func(err error) RetryDecision {
		return DecisionAbort
	})

	assert.Equal(t, resetErr, err)
	assert.Equal(t, 1, model.resetCalls)
	assert.False(t, initializer.Initialized())
}

func TestInitializeStorageFatalError(t *testing.T) {
	initializer, _, _, _, _, _ := newTestInitializer()
	fatal := errors.New("misconfigured service")
	model := &fakeModel{resetErrs: []error{fatal}}

	handlerCalls := 0
	err := initializer.InitializeStorage(model, func(err error) RetryDecision {
		handlerCalls++
		return DecisionRetry
	})

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, model.resetCalls)
	assert.Equal(t, 0, handlerCalls)
}

func TestResetStorageUpdatesConfigAndSelection(t *testing.T) {
	initializer, diskSelection, diskInit, _, _, _ := newTestInitializer()
	initializer.TargetIsImage = true

	diskSelection.selected = []string{"sda"}
	diskSelection.ignored = []string{"sdb"}
	diskInit.mode = ClearAll
	diskInit.drives = []string{"sda"}
	diskInit.devices = []string{"sda1"}
	diskInit.initializeDisks = true
	diskInit.zeroMBR = true

	model := &fakeModel{}
	assert.NoError(t, initializer.ResetStorage(model))

	assert.Equal(t, ClearAll, model.config.ClearPartMode)
	assert.Equal(t, []string{"sda"}, model.config.ClearPartDrives)
	assert.Equal(t, []string{"sda1"}, model.config.ClearPartDevices)
	assert.True(t, model.config.InitializeDisks)
	assert.True(t, model.config.ZeroMBR)
	assert.Equal(t, []string{"sdb"}, model.ignoredDisks)
	assert.Equal(t, []string{"sda"}, model.exclusiveDisks)
	assert.Equal(t, 1, model.resetCalls)
}

func TestResetStorageImageTargetSkipsReloads(t *testing.T) {
	initializer, _, _, fcoe, zfcp, iscsi := newTestInitializer()
	initializer.TargetIsImage = true
	initializer.S390 = true

	assert.NoError(t, initializer.ResetStorage(&fakeModel{}))

	assert.Equal(t, 0, iscsi.calls)
	assert.Equal(t, 0, fcoe.calls)
	assert.Equal(t, 0, zfcp.calls)
}

func TestResetStorageHardwareTargetReloads(t *testing.T) {
	initializer, _, _, fcoe, zfcp, iscsi := newTestInitializer()

	assert.NoError(t, initializer.ResetStorage(&fakeModel{}))

	assert.Equal(t, 1, iscsi.calls)
	assert.Equal(t, 1, fcoe.calls)
	assert.Equal(t, 0, zfcp.calls)

	initializer.S390 = true
	assert.NoError(t, initializer.ResetStorage(&fakeModel{}))
	assert.Equal(t, 2, iscsi.calls)
	assert.Equal(t, 2, fcoe.calls)
	assert.Equal(t, 1, zfcp.calls)
}

func TestInitializeStorageNotices(t *testing.T) {
	initializer, _, _, _, _, _ := newTestInitializer()
	notices := make(chan *InitEvent, 16)
	initializer.RegisterNoticeChan(notices)

	model := &fakeModel{resetErrs: []error{newError("reset", errors.New("scan failed"))}}
	err := initializer.InitializeStorage(model, func(err error) RetryDecision {
		return DecisionRetry
	})
	assert.NoError(t, err)

	triggers := []string{}
	for len(notices) > 0 {
		triggers = append(triggers, (<-notices).Trigger)
	}
	assert.Equal(t, []string{TriggerAttempt, TriggerFailure, TriggerAttempt, TriggerInitialized}, triggers)
}

func TestRegisterNoticeChanConcurrent(t *testing.T) {
	initializer, _, _, _, _, _ := newTestInitializer()
	model := &fakeModel{}
	for n := 0; n < 100; n++ {
		model.resetErrs = append(model.resetErrs, newError("reset", errors.New("scan failed")))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 0; n < 100; n++ {
			initializer.RegisterNoticeChan(make(chan *InitEvent, 1))
		}
	}()

	err := initializer.InitializeStorage(model, func(err error) RetryDecision {
		return DecisionRetry
	})
	<-done

	assert.NoError(t, err)
	assert.True(t, initializer.Initialized())
}

func TestIsStorageError(t *testing.T) {
	assert.True(t, IsStorageError(newError("reset", errors.New("boom"))))
	assert.True(t, IsStorageError(fmt.Errorf("initialization: %w", newError("reset", errors.New("boom")))))
	assert.False(t, IsStorageError(errors.New("plain")))
}
