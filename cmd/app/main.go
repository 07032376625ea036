// Command app serves the ThermoStraw dashboard in front of the prediction server.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initializeApp()
	if err != nil {
		log.Fatalf("thermostraw: wiring failed: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("thermostraw: dashboard stopped: %v", err)
	}
}
