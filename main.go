package main

import (
	"os"

	"github.com/utkarshx27/ai-powered-interview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
