package main

import "github.com/sanskar-502/Bajaj-Cloud/internal/cli"

func main() {
	cli.Execute()
}
