package main

import (
	"github.com/wkalt/bindec/cli/cmd"
)

func main() {
	cmd.Execute()
}
