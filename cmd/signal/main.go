package main

import (
	"os"

	"congresssignal.com/signal/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
