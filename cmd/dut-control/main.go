// Command dut-control attaches to one device under test and drives its power,
// USB and button lines from MQTT and HTTP commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/dut-control/internal/command"
	"github.com/sweeney/dut-control/internal/config"
	"github.com/sweeney/dut-control/internal/control"
	"github.com/sweeney/dut-control/internal/gpio"
	"github.com/sweeney/dut-control/internal/mqtt"
	"github.com/sweeney/dut-control/internal/status"
	"github.com/sweeney/dut-control/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/dut-control/devices.yaml", "Device document")
	board := flag.String("board", "", "Board to attach to (may be omitted if the document has one device)")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address (empty to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	printConfig := flag.Bool("print-config", false, "Print the parsed signal table and exit")

	flag.Parse()

	if err := run(*configPath, *board, *broker, *httpAddr, *printConfig); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath, board, broker, httpAddr string, printConfig bool) error {
	file, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	dev, err := selectDevice(file, board)
	if err != nil {
		return err
	}

	if printConfig {
		printDevice(os.Stdout, dev)
		return nil
	}

	backend, err := gpio.NewChipBackend()
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		ConfigPath: configPath,
		Broker:     broker,
		HTTPAddr:   httpAddr,
	})
	tracker.SetDevice(dev)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	opts := []control.Option{control.WithObserver(tracker)}

	// Initialize MQTT
	var publisher *mqtt.RealPublisher
	if broker != "" {
		publisher, err = mqtt.NewRealPublisher(broker, dev.Board)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		opts = append(opts, control.WithObserver(mqtt.Observer{Publisher: publisher}))
	}

	h, err := control.Open(dev, backend, opts...)
	if err != nil {
		if publisher != nil {
			publishSystem(publisher, tracker, "ATTACH_FAILED", err.Error())
		}
		return fmt.Errorf("attach %s: %w", dev.Board, err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Printf("release gpio: %v", err)
		}
	}()
	tracker.SetDevice(dev)
	tracker.SetAttached(true)

	queue := command.NewQueue(16)
	defer queue.Close()

	if publisher != nil {
		if err := publisher.Subscribe(remoteHandler(queue)); err != nil {
			log.Printf("mqtt: subscribe commands: %v", err)
		}
		tracker.SetMQTTConnected(publisher.IsConnected())
		publishSystem(publisher, tracker, "STARTUP", "")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, queue)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: board=%s config=%s broker=%s", dev.Board, configPath, broker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var pub mqtt.Publisher
	var conn mqtt.ConnectionStatus
	if publisher != nil {
		pub, conn = publisher, publisher
	}
	return runLoop(h, queue, pub, conn, tracker, sigCh)
}

// runLoop applies queued commands one at a time until a signal arrives.
// It is the only goroutine that touches the control handle.
func runLoop(h command.Controller, queue *command.Queue, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			queue.Close()
			if tracker != nil {
				tracker.SetAttached(false)
			}
			if publisher != nil {
				if tracker != nil && mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				publishSystem(publisher, tracker, "SHUTDOWN", signalName(s))
			}
			return nil

		case req := <-queue.C():
			err := command.Apply(h, req.Cmd)
			switch {
			case err == nil:
				log.Printf("%s: %s", req.Source, req.Cmd)
			case errors.Is(err, control.ErrNotConfigured):
				log.Printf("%s: %s: %v", req.Source, req.Cmd, err)
			default:
				log.Printf("%s: %s failed: %v", req.Source, req.Cmd, err)
			}
			req.Done(err)

			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}
	}
}

// remoteHandler turns MQTT command payloads into queued commands without
// blocking the MQTT client.
func remoteHandler(queue *command.Queue) func(string) {
	return func(payload string) {
		cmd, err := command.Parse(payload)
		if err != nil {
			log.Printf("mqtt: %v", err)
			return
		}
		if err := queue.Post("mqtt", cmd, nil); err != nil {
			log.Printf("mqtt: %s: %v", cmd, err)
		}
	}
}

func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	ev := mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     event,
		Reason:    reason,
		Retained:  true,
	}
	if tracker != nil {
		ev.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), event, reason)
	}
	if err := publisher.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	} else {
		log.Printf("published %s event", event)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// selectDevice picks the device to attach to. An empty board is accepted
// when the document describes exactly one device.
func selectDevice(file *config.File, board string) (*config.Device, error) {
	if board != "" {
		return file.Device(board)
	}
	switch len(file.Devices) {
	case 0:
		return nil, errors.New("no devices in config")
	case 1:
		return file.Devices[0], nil
	}
	return nil, fmt.Errorf("config has %d devices, choose one with -board", len(file.Devices))
}

func printDevice(w io.Writer, dev *config.Device) {
	fmt.Fprintf(w, "board: %s\n", dev.Board)
	if dev.Name != "" {
		fmt.Fprintf(w, "name: %s\n", dev.Name)
	}
	fmt.Fprintf(w, "usb_always_on: %v\n", dev.UsbAlwaysOn)
	for _, sig := range config.Signals() {
		b := dev.Signals[sig]
		if !b.Present {
			fmt.Fprintf(w, "%s: not wired\n", sig)
			continue
		}
		polarity := "active high"
		if b.ActiveLow {
			polarity = "active low"
		}
		fmt.Fprintf(w, "%s: %s:%d %s\n", sig, b.Chip, b.Offset, polarity)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
