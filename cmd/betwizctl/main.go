package main

import "github.com/pilab-dev/betwiz-oauth/cmd/betwizctl/cmd"

func main() {
	cmd.Execute()
}
