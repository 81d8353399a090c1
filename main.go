package main

import "github.com/frahmantamala/event-ticketing/cmd"

func main() {
	cmd.Execute()
}
