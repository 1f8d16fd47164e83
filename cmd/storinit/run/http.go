package run

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storinit-io/storinit/pkg/storage"
)

type storageStatus struct {
	Initialized bool     `json:"initialized"`
	Disks       []string `json:"disks"`
}

type eHttpServer struct {
	e           *echo.Echo
	model       storage.Model
	initializer *storage.Initializer
	stopChan    <-chan struct{}
}

func newHTTPServer(model storage.Model, initializer *storage.Initializer, stopChan <-chan struct{}) *eHttpServer {
	h := &eHttpServer{
		model:       model,
		initializer: initializer,
		stopChan:    stopChan,
	}

	e := echo.New()
	e.HideBanner = true
	e.GET("/storage/disks", h.disks)
	e.GET("/storage/status", h.status)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	h.e = e

	return h
}

func (h *eHttpServer) start(addr string) {
	go func() {
		<-h.stopChan
		_ = h.e.Close()
	}()
	if err := h.e.Start(addr); err != nil && err != http.ErrServerClosed {
		h.e.Logger.Fatal(err)
	}
}

func (h *eHttpServer) disks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.model.Disks())
}

func (h *eHttpServer) status(c echo.Context) error {
	return c.JSON(http.StatusOK, storageStatus{
		Initialized: h.initializer.Initialized(),
		Disks:       h.model.Disks(),
	})
}
