package main

import (
	"os"

	"github.com/locustgrub/locustgrub/server/checkinservice"
)

func main() {
	if err := checkinservice.Run(); err != nil {
		os.Exit(1)
	}
}
