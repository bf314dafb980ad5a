package main

import "github.com/codethinklabs/frepo/cmd"

func main() {
	cmd.Execute()
}
