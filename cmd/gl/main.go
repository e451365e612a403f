package main

import "growthline/cmd/gl/root"

func main() {
	root.Execute()
}
