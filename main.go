package main

import "github.com/stepacademy/course-access/cmd"

func main() {
	cmd.Execute()
}
