package main

import "github.com/fyerfyer/bqueue/cmd/qcli/cmd"

func main() {
	cmd.Execute()
}
