package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"
	"github.com/joho/godotenv"
	"github.com/roadwatch/roadwatch/server"
	"github.com/roadwatch/roadwatch/server/detect"
)

func main() {
	parser := argparse.NewParser("roadwatch", "Road hazard detection and alerting server")
	envFile := parser.String("e", "env", &argparse.Options{Help: "Load environment variables from this file before reading config", Default: ""})
	hotReloadWWW := parser.Flag("", "hot", &argparse.Options{Help: "Serve www from disk instead of the embedded copy", Default: false})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			logger.Errorf("Failed to load env file '%v': %v", *envFile, err)
			os.Exit(1)
		}
		logger.Infof("Loaded environment from '%v'", *envFile)
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	cfg.HotReloadWWW = *hotReloadWWW

	// The stub finds nothing, which is the documented behavior until a real
	// model backend is plugged in.
	detector := detect.NewStubDetector()

	srv, err := server.NewServer(logger, cfg, detector)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.ListenHTTP(fmt.Sprintf(":%v", cfg.Port)); err != nil && err != http.ErrServerClosed {
		logger.Errorf("ListenHTTP returned: %v", err)
		os.Exit(1)
	}
}
