package main

import (
	"context"
	"fmt"
	"os"

	"github.com/routersec/cryptex-core/pkg/cryptex"
	"github.com/routersec/cryptex-core/pkg/store"
)

func runRegistry(db string, seed bool, search, category string) {
	kv, err := store.Open(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	registry := cryptex.NewRegistry(kv)
	ctx := context.Background()

	if seed {
		if err := registry.PopulateDefaults(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Seed failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Default entries populated.")
	}

	if search == "" {
		if !seed {
			fmt.Fprintln(os.Stderr, "Error: provide --seed and/or --search")
			os.Exit(1)
		}
		return
	}

	filter := cryptex.CategoryAny
	if category != "" {
		filter, err = cryptex.ParseCategory(category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	found := 0
	for entry, err := range registry.Search(ctx, search, filter) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		found++
		fmt.Printf("%-28s -> %-32s [%s]\n    %s\n",
			entry.FunctionName, entry.BrandingName, entry.Category, entry.PseudoCode)
	}
	fmt.Printf("%d entries matched %q\n", found, search)
}
