package main

import "github.com/notargets/adaptmesh/cmd"

func main() {
	cmd.Execute()
}
