package main

import (
	"github.com/BioHazard786/Shroud/cmd"
)

func main() {
	cmd.Execute()
}
