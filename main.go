package main

import "github.com/maastricht-university/facial-emotion/cmd"

func main() {
	cmd.Execute()
}
