package main

import (
	"fmt"
	"os"

	"github.com/metinatakli/movie-booking-system/internal/app"
)

func main() {
	err := app.RunSweeper()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
