package main

import (
	"os"

	"github.com/tinoosan/voucherledger/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
