package main

import "w3plex/internal/cli"

func main() {
	cli.Execute()
}
