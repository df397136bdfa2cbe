package main

import "github.com/dukerupert/petpals/cmd/petpals/root"

func main() {
	root.Execute()
}
