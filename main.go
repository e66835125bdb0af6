package main

import "github.com/KaramelBytes/datacatalog-cli/cmd"

func main() {
	cmd.Execute()
}
