package main

import "github.com/curaious/projectchron/cmd"

func main() {
	cmd.Execute()
}
