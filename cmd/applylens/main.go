package main

import "github.com/applylens/inbox-policy/internal/cli"

func main() {
	cli.Execute()
}
