package main

import (
	"os"

	"horse.fit/nichescore/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
