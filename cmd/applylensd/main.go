package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/applylens/inbox-policy/internal/daemon"
	"github.com/applylens/inbox-policy/internal/di"
)

var configFile = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(daemon.Run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}
