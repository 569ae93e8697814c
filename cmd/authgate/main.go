package main

import (
	"log"

	"github.com/cedadev/authgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
