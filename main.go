package main

import "github.com/aisentools/msfix/cmd"

func main() {
	cmd.Execute()
}
