package main

import "github.com/cactusdev/cactus/cmd"

func main() {
	cmd.Execute()
}
