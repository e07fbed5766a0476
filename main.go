package main

import "github.com/khanhnv2901/netdiag/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
