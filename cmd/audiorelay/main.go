package main

import (
	"fmt"
	"os"
)

const (
	serviceName    = "audio-relay"
	serviceVersion = "1.0.0"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
