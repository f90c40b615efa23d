package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/roomboard/kiosk/internal/backend"
	"github.com/roomboard/kiosk/internal/cache"
	"github.com/roomboard/kiosk/internal/config"
	"github.com/roomboard/kiosk/internal/lifecycle"
	"github.com/roomboard/kiosk/internal/models"
	"github.com/roomboard/kiosk/internal/pairing"
	roomsync "github.com/roomboard/kiosk/internal/sync"
	"github.com/roomboard/kiosk/internal/utils"
)

func main() {
	backendConfig := config.GetBackendConfig()
	client := backend.NewClient(backendConfig.BaseURL, backendConfig.RequestTimeout)

	// Load the persisted device identity; an unpaired device runs the
	// pairing bootstrap before anything else
	identityPath := config.DefaultIdentityPath()
	identity, err := config.LoadIdentity(identityPath)
	if err != nil {
		log.Fatalf("Failed to load device identity: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	if !identity.Paired() {
		identity, err = runPairing(client, identity, identityPath, shutdown)
		if err != nil {
			log.Fatalf("Pairing failed: %v", err)
		}
	}

	log.Printf("Panel bound to room %s (%s)",
		utils.SanitizeLogString(identity.RoomID), utils.SanitizeLogString(identity.RoomName))

	// Offline cache: Redis when configured, in-memory otherwise
	offlineCache := cache.NewCache(config.GetCacheConfig())
	if closer, ok := offlineCache.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("Error closing cache: %v", err)
			}
		}()
	}

	engine := roomsync.NewEngine(client, offlineCache)
	defer engine.Close()

	controller := lifecycle.NewController(client, identity.RoomID)

	// The rendering layer subscribes the same way; here we log the
	// derived screen on every accepted snapshot
	unsubscribe := engine.Subscribe(func(state *models.RoomState) {
		controller.OnRoomState(state)
		view := controller.View()
		log.Printf("Room %s is %s, screen %s",
			utils.SanitizeLogString(state.Room.Name), state.Status, view.Screen)
	})
	defer unsubscribe()

	engine.StartPolling(identity.RoomID, backendConfig.PollInterval)
	if backendConfig.EnablePush {
		engine.StartPush(client.RoomEventsURL(identity.RoomID))
	}

	<-shutdown
	log.Println("Shutting down panel...")
	engine.Close()
	log.Println("Panel stopped")
}

// runPairing drives the pairing flow until an admin binds the device to a
// room, then persists the binding
func runPairing(client *backend.Client, identity config.DeviceIdentity, identityPath string, shutdown chan os.Signal) (config.DeviceIdentity, error) {
	paired := make(chan config.DeviceIdentity, 1)

	manager, err := pairing.NewManager(client, config.GetPairingConfig(), func(roomID, roomName string) {
		paired <- config.DeviceIdentity{RoomID: roomID, RoomName: roomName}
	})
	if err != nil {
		return identity, err
	}
	defer manager.Stop()

	log.Printf("Device unpaired, requesting pairing code (serial %s)", manager.DeviceSerial())
	manager.Start()

	select {
	case bound := <-paired:
		bound.DeviceSerial = manager.DeviceSerial()
		if err := config.SaveIdentity(identityPath, bound); err != nil {
			// The binding still works for this process lifetime
			log.Printf("Failed to persist device identity: %v", err)
		}
		return bound, nil

	case <-shutdown:
		log.Println("Shutdown requested during pairing")
		os.Exit(0)
		return identity, nil
	}
}
