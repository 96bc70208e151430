package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ndn-go/ndnfwd/config"
	"github.com/ndn-go/ndnfwd/core"
	"github.com/ndn-go/ndnfwd/fw"
	"github.com/ndn-go/ndnfwd/mgmt"
	"github.com/ndn-go/ndnfwd/sched"
)

var runCmd = &cobra.Command{
	Use:   "run CONFIG-FILE",
	Short: "Run the forwarding daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}

	thread := fw.NewThread(cfg, sched.SystemClock{})
	go thread.Run()

	manager := mgmt.NewManager(thread)
	events := mgmt.NewEventStream()
	httpMux := http.NewServeMux()
	httpMux.Handle("/events", events)
	httpMux.Handle("/", manager)

	server := &http.Server{Addr: cfg.Mgmt.Addr, Handler: httpMux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			core.Log.Error(daemonLogger{}, "mgmt server failed", "err", err)
		}
	}()
	core.Log.Info(daemonLogger{}, "forwarder started", "mgmt_addr", cfg.Mgmt.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	core.Log.Info(daemonLogger{}, "received signal, shutting down", "signal", sig)

	_ = server.Close()
	thread.Stop()
	return nil
}

type daemonLogger struct{}

func (daemonLogger) String() string { return "ndnfwd" }
