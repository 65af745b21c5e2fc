package main

import "github.com/theirongolddev/kpicast/cmd"

func main() {
	cmd.Execute()
}
