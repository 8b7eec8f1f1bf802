package main

import (
	"flag"
	"fmt"
	"os"

	pkgversion "github.com/routersec/cryptex-core/pkg/version"
)

// Build-time variables (set via -ldflags)
var (
	version   = ""        // Set via -ldflags "-X main.version=x.y.z"
	buildTime = "unknown" // Set via -ldflags "-X main.buildTime=..."
	gitCommit = "unknown" // Set via -ldflags "-X main.gitCommit=..."
)

func getVersion() string {
	if version != "" {
		return version
	}
	return pkgversion.String()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "hash":
		hashCommand()
	case "demo":
		demoCommand()
	case "registry":
		registryCommand()
	case "version":
		fmt.Printf("cryptex version %s\n", getVersion())
		if buildTime != "unknown" {
			fmt.Printf("Built: %s\n", buildTime)
		}
		if gitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", gitCommit)
		}
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cryptex - Quantum-Safe Crypto Core Demo Tool

USAGE:
    cryptex <command> [options]

COMMANDS:
    hash      Compute digests of a string or file
    demo      Run an encrypt/decrypt round trip through the full engine
    registry  Seed and search the name-mapping registry
    version   Print version information
    help      Show this help message

Run 'cryptex <command> --help' for more information on a command.

EXAMPLES:
    # Hash a string with one algorithm
    cryptex hash --algorithm sha256 --input "test"

    # Hash a file with every supported algorithm
    cryptex hash --all --file ./payload.bin

    # Encrypt and decrypt through QKD + ML-KEM key establishment
    cryptex demo --message "secret message" --db ./cryptex.db

    # Search the registry
    cryptex registry --db ./cryptex.db --search dlink`)
}

func hashCommand() {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	algorithm := fs.String("algorithm", "sha256", "Algorithm name (see --list)")
	input := fs.String("input", "", "Input string to hash")
	file := fs.String("file", "", "File to hash instead of --input")
	all := fs.Bool("all", false, "Compute every supported algorithm")
	list := fs.Bool("list", false, "List supported algorithms and exit")

	fs.Usage = func() {
		fmt.Println(`USAGE: cryptex hash [options]

Compute one or all supported digests of the given input.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	runHash(*algorithm, *input, *file, *all, *list)
}

func demoCommand() {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	message := fs.String("message", "secret message", "Plaintext to encrypt")
	keySize := fs.Int("key-size", 32, "Session key size in bytes")
	db := fs.String("db", "cryptex.db", "Database path")
	cipher := fs.String("cipher", "aes-gcm", "Cipher suite: aes-gcm or chacha20")
	noise := fs.Float64("noise", 0, "Simulated channel noise probability (0..1)")
	logLevel := fs.String("log-level", "warn", "Log level: debug, info, warn, error")

	fs.Usage = func() {
		fmt.Println(`USAGE: cryptex demo [options]

Run one full encrypt/decrypt round trip: BB84 key exchange simulation,
ML-KEM-1024 encapsulation, key derivation, AEAD sealing, and session
persistence.

OPTIONS:`)
		fs.PrintDefaults()
		fmt.Println(`
EXAMPLES:
    # Plain round trip
    cryptex demo --message "secret message"

    # Watch the QKD abort path by simulating a hostile channel
    cryptex demo --noise 0.25 --log-level debug`)
	}

	_ = fs.Parse(os.Args[2:])

	runDemo(*message, *keySize, *db, *cipher, *noise, *logLevel)
}

func registryCommand() {
	fs := flag.NewFlagSet("registry", flag.ExitOnError)
	db := fs.String("db", "cryptex.db", "Database path")
	seed := fs.Bool("seed", false, "Populate the built-in default entries")
	search := fs.String("search", "", "Search query (substring, case-insensitive)")
	category := fs.String("category", "", "Restrict search to one category")

	fs.Usage = func() {
		fmt.Println(`USAGE: cryptex registry [options]

Seed and query the persistent function-name/branding-name registry.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	runRegistry(*db, *seed, *search, *category)
}
