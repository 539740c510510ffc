// Command paddlebot is a headless client that connects to a relay, finds a
// match and drives a paddle with scripted input. It exists to exercise the
// full netcode path without a renderer: two bots against one relay produce
// real prediction, dead reckoning and smoothing traffic.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openpaddle/netpong/network"
	"github.com/openpaddle/netpong/session"
	"github.com/openpaddle/netpong/shared/gamemath"
	"github.com/openpaddle/netpong/shared/netconfig"
)

func main() {
	address := flag.String("address", "localhost:7373", "Relay address")
	latency := flag.Float64("latency", 0.05, "Assumed average one-way latency in seconds")
	predict := flag.Bool("predict", true, "Enable dead reckoning for remote paddles")
	smooth := flag.Bool("smooth", true, "Enable correction smoothing for remote paddles")
	flag.Parse()

	client := network.NewClient()
	if err := client.Connect(*address); err != nil {
		log.Fatalf("[bot] connect: %v", err)
	}

	for client.State() != network.StateConnected {
		if client.State() == network.StateError {
			log.Fatalf("[bot] connect: %v", client.LastError())
		}
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ticket, err := client.FindMatch(ctx, netconfig.MinPlayers)
	cancel()
	if err != nil {
		log.Fatalf("[bot] matchmaking: %v", err)
	}
	log.Printf("[bot] waiting for opponents (ticket %s)", ticket)

	coord := session.NewCoordinator(client, session.Config{
		Screen:               netconfig.ScreenSize,
		Predict:              *predict,
		Smooth:               *smooth,
		FramesBetweenPackets: netconfig.FramesBetweenPackets,
		EstimatedLatency:     *latency,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / netconfig.SimTickRate)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-sigCh:
			log.Println("[bot] shutting down")
			coord.QuitMatch()
			client.Disconnect()
			return
		case <-ticker.C:
		}

		// Transport events apply strictly between ticks.
		if m := client.LatestMatched(); m != nil {
			coord.OnMatched(m.MatchID, m.Participants, m.SessionID)
		}
		for _, p := range client.DrainPresence() {
			coord.OnPresenceChange(p.Joins, p.Leaves)
		}
		for _, d := range client.DrainMatchData() {
			coord.OnMatchState(d.SenderID, d.OpCode, d.Payload)
		}

		if coord.State() != session.StateInMatch {
			continue
		}

		frame++
		t := float64(frame) * netconfig.SimTickSeconds
		coord.SetLocalInput(gamemath.Vec2{Y: math.Sin(t)})
		if e := coord.Entity(client.SessionID()); e != nil {
			e.Motion.Buffer().Simulation.Velocity = gamemath.Vec2{Y: math.Sin(t) * 300}
		}
		coord.Update(netconfig.SimTickSeconds)

		if frame%netconfig.FramesBetweenPackets == 0 {
			if err := coord.SendLocalState(); err != nil {
				log.Printf("[bot] send state: %v", err)
			}
		}

		for _, ev := range coord.DrainSpawned() {
			log.Printf("[bot] %s paddle %s joined", ev.Role, ev.SessionID)
		}
		for _, ev := range coord.DrainRemoved() {
			log.Printf("[bot] %s paddle %s left", ev.Role, ev.SessionID)
		}
	}
}
