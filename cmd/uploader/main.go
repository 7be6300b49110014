package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/fileintake/cmd/uploader/cli"
)

func main() {
	root := cli.NewRootCommand()
	root.AddCommand(cli.NewPutCommand())
	root.AddCommand(cli.NewStatusCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
