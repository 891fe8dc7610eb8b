package main

import "github.com/terraconstructs/courtbook/cmd/courtctl/cmd"

func main() {
	cmd.Execute()
}
