package main

import "github.com/offlinehacker/gobankid/cmd"

func main() {
	cmd.Execute()
}
