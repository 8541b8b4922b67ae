package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"

	echodash "github.com/trezcool/schoolboard/apps/dashboard/echo"
	"github.com/trezcool/schoolboard/core"
	logsvc "github.com/trezcool/schoolboard/services/logger"
	"github.com/trezcool/schoolboard/storage/restapi"
	"github.com/trezcool/schoolboard/storage/sessions"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	if err := conf.RequireSecretKey(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DASHBOARD : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	backends, err := restapi.NewBackends(conf.Backends, conf.Client.Timeout)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up backends: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	names := make([]string, 0, len(conf.Backends))
	for _, bc := range conf.Backends {
		names = append(names, bc.Name+"="+bc.URL)
	}
	logger.Info("Backends : " + strings.Join(names, ", "))

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Dashboard Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server, err := echodash.NewServer(conf.Server.Address, shutdown, &echodash.Deps{
		Conf:       conf,
		Logger:     logger,
		Backends:   backends,
		Sessions:   sessions.NewStore(conf.Session.TTL),
		Validate:   validate,
		Translator: translator,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
