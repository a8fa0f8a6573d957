package main

import "github.com/KaramelBytes/unstructiq-cli/cmd"

func main() {
	cmd.Execute()
}
