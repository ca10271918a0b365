package main

import (
	"github.com/mckeimic/mitmscripts/cmd"
)

var execCmd = cmd.Execute

func main() {
	execCmd()
}
