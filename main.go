package main

import "newsnotes/cmd"

func main() {
	cmd.Execute()
}
