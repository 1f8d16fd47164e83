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

package configuration

import (
	"fmt"
	"regexp"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/storinit-io/storinit"
	"github.com/storinit-io/storinit/utils"
	"github.com/storinit-io/storinit/utils/log"
)

// 配置文件路径
const configPath = "/etc/storinit/"

var configModifyNotice []chan<- struct{}
var GlobalConfig *viper.Viper
var installConfig Install

var opt = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
))

// Target describes what kind of system is being installed.
type Target struct {
	Type string `json:"type"`
}

// Security holds the policy-related switches.
type Security struct {
	SELinux bool `json:"selinux"`
}

// Storage holds the storage-discovery switches and defaults.
type Storage struct {
	DMRaid                 bool     `json:"dmraid"`
	IBFT                   bool     `json:"ibft"`
	MultipathFriendlyNames bool     `json:"multipathFriendlyNames"`
	AllowImperfectDevices  bool     `json:"allowImperfectDevices"`
	FileSystemType         string   `json:"fileSystemType"`
	LUKSVersion            string   `json:"luksVersion"`
	DeviceNameBlacklist    []string `json:"deviceNameBlacklist"`
}

// Install is the static process configuration. It is read once at startup
// and treated as immutable by every consumer.
type Install struct {
	Target   Target   `json:"target"`
	Security Security `json:"security"`
	Storage  Storage  `json:"storage"`
}

func init() {
	log.Info("Loading global configuration ...")
	GlobalConfig = initConfig()
	go dynamicConfig()
}

func initConfig() *viper.Viper {
	GlobalConfig := viper.New()
	GlobalConfig.AddConfigPath(configPath)
	GlobalConfig.SetConfigName("config")
	GlobalConfig.SetConfigType("json")
	GlobalConfig.SetDefault("target.type", storinit.TargetHardware)
	GlobalConfig.SetDefault("security.selinux", true)
	GlobalConfig.SetDefault("storage.ibft", true)
	GlobalConfig.SetDefault("storage.multipathFriendlyNames", true)
	if err := GlobalConfig.ReadInConfig(); err != nil {
		log.Warnf("Failed to get the configuration, using defaults: %s", err)
		unmarshalDefaults(GlobalConfig)
		return GlobalConfig
	}

	if err := GlobalConfig.Unmarshal(&installConfig, opt); err != nil {
		log.Errorf("Failed to unmarshal the configuration: %s", err)
		unmarshalDefaults(GlobalConfig)
		return GlobalConfig
	}

	if err := validate(installConfig); err != nil {
		log.Errorf("Failed to validate the configuration: %s", err)
		unmarshalDefaults(GlobalConfig)
	}

	return GlobalConfig
}

func unmarshalDefaults(v *viper.Viper) {
	installConfig = Install{}
	_ = v.Unmarshal(&installConfig, opt)
}

func dynamicConfig() {
	GlobalConfig.WatchConfig()
	GlobalConfig.OnConfigChange(func(event fsnotify.Event) {
		log.Infof("Detect config change: %s", event.String())
		var changed Install
		if err := GlobalConfig.Unmarshal(&changed, opt); err != nil {
			log.Errorf("Failed to unmarshal the configuration: %s, ignore this change", err)
			return
		}
		if err := validate(changed); err != nil {
			log.Errorf("Failed to validate the configuration: %s, ignore this change", err)
			return
		}
		installConfig = changed
		for _, c := range configModifyNotice {
			log.Info("Generates the configuration change event")
			c <- struct{}{}
		}
	})
}

func RegisterListenerChan(c chan<- struct{}) {
	configModifyNotice = append(configModifyNotice, c)
}

// TargetType 安装目标类型 hardware/image/directory
func TargetType() string {
	targetType := GlobalConfig.GetString("target.type")
	if !utils.ContainsString([]string{storinit.TargetHardware, storinit.TargetImage, storinit.TargetDirectory}, targetType) {
		targetType = storinit.TargetHardware
	}
	return targetType
}

// IsImage reports whether the install target is a disk image.
func IsImage() bool {
	return TargetType() == storinit.TargetImage
}

// IsDirectory reports whether the install target is a directory tree.
func IsDirectory() bool {
	return TargetType() == storinit.TargetDirectory
}

func SELinux() bool {
	return GlobalConfig.GetBool("security.selinux")
}

func DMRaid() bool {
	return GlobalConfig.GetBool("storage.dmraid")
}

func IBFT() bool {
	return GlobalConfig.GetBool("storage.ibft")
}

func MultipathFriendlyNames() bool {
	return GlobalConfig.GetBool("storage.multipathFriendlyNames")
}

func AllowImperfectDevices() bool {
	return GlobalConfig.GetBool("storage.allowImperfectDevices")
}

// FileSystemType 默认文件系统类型，为空时使用库默认值
func FileSystemType() string {
	return GlobalConfig.GetString("storage.fileSystemType")
}

// LUKSVersion 默认LUKS版本，为空时使用库默认值
func LUKSVersion() string {
	return GlobalConfig.GetString("storage.luksVersion")
}

// DeviceNameBlacklist returns the device name patterns hidden from discovery.
func DeviceNameBlacklist() []string {
	blacklist := GlobalConfig.GetStringSlice("storage.deviceNameBlacklist")
	if len(blacklist) == 0 {
		blacklist = []string{`^mtd`, `^mmcblk.+boot`, `^mmcblk.+rpmb`, `^zram`, `^ndblk`}
	}
	return blacklist
}

func validate(install Install) error {
	var targetRegexp = regexp.MustCompile("(?i)^(hardware|image|directory)?$")
	var fsNameRegexp = regexp.MustCompile("^[a-z0-9]*$")

	if !targetRegexp.MatchString(install.Target.Type) {
		return fmt.Errorf("target type must be hardware, image or directory: %s", install.Target.Type)
	}
	if !fsNameRegexp.MatchString(install.Storage.FileSystemType) {
		return fmt.Errorf("file system type is not a valid filesystem name: %s", install.Storage.FileSystemType)
	}
	for _, re := range install.Storage.DeviceNameBlacklist {
		if _, err := regexp.Compile(re); err != nil {
			return fmt.Errorf("device name blacklist entry is not a valid regexp: %s", re)
		}
	}
	return nil
}
