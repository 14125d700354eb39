package main

import (
	"github.com/luma/epp/cmd"
)

func main() {
	cmd.Execute()
}
