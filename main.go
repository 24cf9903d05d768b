package main

import (
	"log"

	"github.com/kujua-learning/kujua-api/app"
)

func main() {
	if err := app.SetupAndRunServer(); err != nil {
		log.Fatal(err)
	}
}
