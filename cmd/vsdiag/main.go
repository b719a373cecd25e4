//go:build linux

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/soypat/vs10x3"
	"github.com/soypat/vs10x3/internal/diagpub"
	"github.com/soypat/vs10x3/sci"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "vsdiag - Boot a VS10x3 attached to a Linux SPI port and print its register state.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	port := flag.String("spi", "", "SPI port, i.e: /dev/spidev0.0. Empty selects the first port.")
	dreq := flag.String("dreq", "GPIO25", "DREQ GPIO name.")
	reset := flag.String("reset", "GPIO24", "XRESET GPIO name. Empty if not wired.")
	xtal := flag.Uint("xtal", sci.DefaultXtaliHz, "Crystal frequency in Hz.")
	mult := flag.Uint("mult", 4, "SC_MULT clock multiplier field.")
	rate := flag.Uint("rate", 12_000_000/7, "SCI clock in Hz.")
	timeout := flag.Duration("timeout", 2*time.Second, "Boot timeout.")
	dump := flag.Bool("dump", true, "Read and print all readable registers after boot.")
	broker := flag.String("mqtt", "", "MQTT broker address to publish diagnostics to, i.e: 192.168.1.53:1883.")
	topic := flag.String("topic", "vs10x3/diag", "MQTT topic for diagnostics.")
	verbose := flag.Bool("v", false, "Log every SCI transaction.")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug - 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if err := run(logger, *port, *dreq, *reset, uint32(*xtal), uint8(*mult), uint32(*rate), *timeout, *dump, *broker, *topic); err != nil {
		logger.Error("vsdiag failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, port, dreq, reset string, xtal uint32, mult uint8, rate uint32, timeout time.Duration, dump bool, broker, topic string) error {
	dev, closer, err := vs10x3.OpenPeriph(vs10x3.PeriphConfig{
		SPIPort:  port,
		DREQPin:  dreq,
		ResetPin: reset,
		SCIRate:  rate,
	})
	if err != nil {
		return err
	}
	defer closer()

	cfg := vs10x3.DefaultConfig()
	cfg.XtalHz = xtal
	cfg.ClockMult = mult
	cfg.SCIRate = rate
	cfg.Logger = logger
	start := time.Now()
	err = dev.Init(cfg)
	for err == nil && dev.State() == vs10x3.StateBooting && time.Since(start) < timeout {
		time.Sleep(time.Millisecond)
		err = dev.Tick()
	}
	if err != nil && !errors.Is(err, vs10x3.ErrUnsupportedChip) {
		return err
	}
	if errors.Is(err, vs10x3.ErrUnsupportedChip) {
		logger.Warn("continuing with unsupported chip", slog.String("err", err.Error()))
	}
	switch dev.State() {
	case vs10x3.StateBooting:
		return fmt.Errorf("chip still booting after %s", timeout)
	case vs10x3.StateFailed:
		return dev.Err()
	}
	logger.Info("booted", slog.Duration("elapsed", time.Since(start)))
	dev.LogConfig()

	if dump {
		for addr := sci.Address(0); addr < sci.NumRegisters; addr++ {
			info := addr.Info()
			if !info.Access.Readable() {
				continue
			}
			v, err := dev.ReadRegister(addr)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s %-2s %#04x\n", addr.String(), info.Access.String(), v)
		}
	}
	if broker == "" {
		return nil
	}
	return publish(logger, broker, topic, dev.Diagnostics())
}

func publish(logger *slog.Logger, broker, topic string, diag vs10x3.Diagnostics) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()
	pub, err := diagpub.New("vsdiag", topic, logger)
	if err != nil {
		return err
	}
	if err = pub.Connect(ctx, conn); err != nil {
		return err
	}
	defer pub.Close()
	return pub.Publish(diag)
}
