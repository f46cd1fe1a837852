package main

import (
	"fmt"
	"os"
	"strings"

	"bluelog/app/commands"
)

const CliVersion = "1.0.0"

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain dispatches os.Args to the blog commands.
func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	switch cmd := strings.ToLower(os.Args[1]); cmd {
	case "version":
		fmt.Printf("bluelog version %s\n", CliVersion)
	default:
		args := append([]string{cmd}, os.Args[2:]...)
		if code := commands.HandleCommand(args); code != 0 {
			exit(code)
		}
	}
}

func printHelp() {
	commands.PrintHelp()
}
