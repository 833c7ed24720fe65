package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loreweave/loreweave/cmd/service"
)

func main() {
	root := &cobra.Command{
		Use:   "loreweave",
		Short: "loreweave knowledge graph engine",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command")
		},
	}

	root.AddCommand(service.NewProcessCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
