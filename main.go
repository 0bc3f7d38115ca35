package main

import "github.com/fakeyudi/sitefocus/cmd"

func main() {
	cmd.Execute()
}
