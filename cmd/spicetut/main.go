package main

import "github.com/edp1096/toy-spice-tutorials/cmd/spicetut/commands"

func main() {
	commands.Execute()
}
