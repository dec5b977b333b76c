package main

import (
	"os"

	"github.com/mitchellh/panicwrap"
	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/cmd"
)

func main() {
	exitStatus, err := panicwrap.BasicWrap(panicHandler)
	if err != nil {
		log.Fatalf("Unable to start panic handler: %s", err)
	}
	// Parent process: the wrapped child has already run and exited.
	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func panicHandler(output string) {
	log.Errorf("evse-rapi crashed:\n\n%s", output)
	os.Exit(1)
}
