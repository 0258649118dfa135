package main

import (
	"errors"
	"fmt"
	"os"

	"Puppeteer/pkg/logging"
)

func main() {
	root := NewRootCommand()
	err := root.Execute(os.Args[1:])
	logging.CloseLogger()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	os.Exit(1)
}
