package main

import (
	"fmt"
	"os"

	"github.com/routersec/cryptex-core/pkg/hashing"
)

func runHash(algorithm, input, file string, all, list bool) {
	engine := hashing.NewEngine()

	if list {
		fmt.Println("Supported algorithms:")
		for _, alg := range hashing.Algorithms() {
			fmt.Printf("    %-12s %3d bytes\n", alg.String(), alg.Size())
		}
		return
	}

	data := []byte(input)
	if file != "" {
		var err error
		data, err = os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", file, err)
			os.Exit(1)
		}
	} else if input == "" {
		fmt.Fprintln(os.Stderr, "Error: provide --input or --file")
		os.Exit(1)
	}

	if all {
		results, err := engine.HashAll(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, alg := range hashing.Algorithms() {
			fmt.Printf("%-12s %s\n", alg.String(), results[alg].Hex)
		}
		return
	}

	alg, err := hashing.ParseAlgorithm(algorithm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (try --list)\n", err)
		os.Exit(1)
	}
	result, err := engine.Hash(alg, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%-12s %s\n", alg.String(), result.Hex)
}
