package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/kianooshaz/hello-web-world/concurrent/server"
)

func main() {
	addr := ":8080"
	s := server.Server{
		Addr:   addr,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	log.Printf("Starting web server: http://localhost%s", addr)
	if err := s.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
