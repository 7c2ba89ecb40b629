package main

import "hot-server/cmd"

func main() {
	cmd.Execute()
}
