package main

import "trevpay/cmd/trev-cli/cmd"

func main() {
	cmd.Execute()
}
