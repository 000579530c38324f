package main

import "github.com/RyanBlaney/stream-ingest/cmd"

func main() {
	cmd.Execute()
}
