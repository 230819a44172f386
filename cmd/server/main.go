package main

import "github.com/qrbase/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
