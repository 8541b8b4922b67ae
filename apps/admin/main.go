package main

import (
	"errors"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schoolboard/core"
	"github.com/trezcool/schoolboard/storage/restapi"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up backends
	backends, err := restapi.NewBackends(conf.Backends, conf.Client.Timeout)
	errAndDie(err)
	if len(conf.Backends) == 0 {
		errAndDie(errors.New("no backend configured"))
	}

	// start CLI
	cli := commandLine{
		backends: backends,
		fallback: conf.Backends[0].Name,
		validate: validator.New(),
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
