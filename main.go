package main

import "github.com/papapumpkin/proofreel/cmd"

func main() {
	cmd.Execute()
}
