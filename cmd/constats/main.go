package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "sources":
		cmdSources(os.Args[2:])
	case "history":
		cmdHistory(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: constats <command>

Commands:
  run       Joindre un rapport de constats aux communes et produire les sorties
  serve     Start the HTTP server (matching API, /metrics)
  mcp       Serve the MCP tools on stdio
  import    Download and compile a commune gazetteer
  sources   List, override or check import source URLs
  history   List recorded runs
`)
}
