package main

//go-build: CGO_ENABLED=0

import (
	"github.com/robotalks/uart.go/pkg/cli/sh"
	"github.com/robotalks/uart.go/pkg/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
