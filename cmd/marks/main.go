package main

import (
	"log"

	"github.com/MrSnakeDoc/marks/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ marks failed: %v", err)
	}
}
