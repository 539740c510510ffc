package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/openpaddle/netpong/relay"
)

func main() {
	port := flag.Uint("port", 7373, "WebSocket listen port")
	httpPort := flag.Int("httpport", 8080, "HTTP status listen port")
	flag.Parse()

	server := relay.NewServer()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", relay.Status(server))
	mux.HandleFunc("GET /health", relay.Health())

	var g errgroup.Group
	g.Go(func() error {
		log.Printf("[relay] serving matches on port %d", *port)
		return server.Start(*port)
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", *httpPort)
		log.Printf("[relay] serving status on %s", addr)
		return http.ListenAndServe(addr, mux)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("[relay] fatal: %v", err)
	}
}
