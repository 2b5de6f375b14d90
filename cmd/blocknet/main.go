// Package main provides the BlockNet CLI: inspect registered
// architectures and print their resolved configurations.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/blocknet-ml/blocknet/resnet"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("BlockNet %s\n", version)
	case "list":
		for _, name := range resnet.Architectures() {
			fmt.Println(name)
		}
	case "show":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: blocknet show <architecture>")
			os.Exit(2)
		}
		if err := show(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "blocknet: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "blocknet: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func show(name string) error {
	cfg, err := resnet.DefaultConfig(name)
	if err != nil {
		return err
	}
	data, err := cfg.ToYAML()
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", strings.ToLower(name), data)
	return nil
}

func usage() {
	fmt.Println("BlockNet - residual network layouts for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  list              List registered architectures")
	fmt.Println("  show <arch>       Print an architecture's configuration as YAML")
	fmt.Println("  version           Show version")
}
