package main

import (
	"log"
	"os"

	"github.com/dlnaproxy/dlnaproxy/cmd"
)

func main() {
	app, err := cmd.NewApp()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
	app.Start()
}
