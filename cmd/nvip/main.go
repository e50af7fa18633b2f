package main

import (
	"fmt"
	"os"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/cmd/root"
)

func main() {
	if err := root.NewCmdRoot().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to exec nvip: %s\n", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}
