package main

import (
	"github.com/crucial707/userdir/cmd/cli/auth"
	"github.com/crucial707/userdir/cmd/cli/root"
	"github.com/crucial707/userdir/cmd/cli/users"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	users.InitUsers(rootCmd)
	root.Execute()
}
