package main

import (
	"log"

	"github.com/Qrokawa/jinzai-ikusei/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
