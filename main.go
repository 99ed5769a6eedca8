package main

import "github.com/KaramelBytes/tableloom/cmd"

func main() {
	cmd.Execute()
}
