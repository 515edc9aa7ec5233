// Package main is the rangesim command itself.
package main

import (
	"log"
	"os"

	"go.viam.com/rangesim/cli"
	// register sensor kinds.
	_ "go.viam.com/rangesim/components/register"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
