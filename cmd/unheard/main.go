// Command unheard is the command-line client for the Unheard API.
package main

import "unheard/internal/cli"

func main() {
	cli.Execute()
}
