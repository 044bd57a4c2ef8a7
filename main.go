package main

import "github.com/kris-hansen/pfmea/cmd"

func main() {
	cmd.Execute()
}
