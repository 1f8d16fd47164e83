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

package run

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/storinit-io/storinit/pkg/blockdev"
	"github.com/storinit-io/storinit/pkg/configuration"
	"github.com/storinit-io/storinit/pkg/iscsi"
	"github.com/storinit-io/storinit/pkg/services"
	"github.com/storinit-io/storinit/pkg/storage"
	"github.com/storinit-io/storinit/runners"
	"github.com/storinit-io/storinit/utils/exec"
	"github.com/storinit-io/storinit/utils/log"
)

func subMain() error {
	executor := &exec.CommandExecutor{}

	// 配置块设备层
	layer := blockdev.Configure(blockdev.InstallerFlags(), executor)

	conn, err := services.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	diskSelection := services.NewDiskSelectionProxy(conn)
	diskInit := services.NewDiskInitializationProxy(conn)
	autoPart := services.NewAutoPartitioningProxy(conn)
	fcoe := services.NewFCOEProxy(conn)
	zfcp := services.NewZFCPProxy(conn)

	// 初始化存储模型
	model := storage.CreateStorage(layer, configuration.FileSystemType(), configuration.LUKSVersion())

	if err := storage.ApplyKickstartDefaults(model, autoPart); err != nil {
		log.Errorf("unable to apply the partitioning defaults: %v", err)
		return err
	}

	initializer := storage.NewInitializer(layer, diskSelection, diskInit, fcoe, zfcp,
		iscsi.NewManager(executor, layer.Flags().IBFT))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exporter := runners.NewMetricsExporter(initializer, prometheus.DefaultRegisterer)
	go func() {
		if err := exporter.Start(ctx); err != nil {
			log.Errorf("metrics exporter stopped: %v", err)
		}
	}()

	httpServer := newHTTPServer(model, initializer, ctx.Done())
	go httpServer.start(config.statusAddr)

	if err := initializer.InitializeStorage(model, errorHandler); err != nil {
		log.Errorf("storage initialization failed: %v", err)
		return err
	}

	selected, err := initializer.SelectAllDisksByDefault(model)
	if err != nil {
		return err
	}
	log.Infof("selected disks: %v", selected)

	<-ctx.Done()
	return nil
}

// errorHandler is the policy for recoverable storage errors. Without an
// operator answer the safe default is to abort.
func errorHandler(err error) storage.RetryDecision {
	if config.continueOnError {
		log.Warnf("retrying the storage reset: %v", err)
		return storage.DecisionRetry
	}
	return storage.DecisionAbort
}
