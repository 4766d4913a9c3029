package main

import (
	"CampusTrade/cmd"
)

func main() {
	cmd.Execute()
}
