package main

import "github.com/goliatone/go-ngstate/cmd/ngstate/cmd"

func main() {
	cmd.Execute()
}
