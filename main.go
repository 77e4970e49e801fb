// Package main is the entry point for the backend server.
package main

import (
	"context"
	"os"

	"backend/cmd"
)

func main() {
	os.Exit(cmd.Execute(context.Background(), os.Args[1:], os.Stderr))
}
