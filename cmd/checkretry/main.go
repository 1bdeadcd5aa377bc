package main

import "github.com/kubefleet-dev/checkretry/cmd/checkretry/cli"

func main() {
	cli.Execute()
}
