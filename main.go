package main

import "github.com/openmeteo/enhydris-api-client/cmd"

func main() {
	cmd.Execute()
}
