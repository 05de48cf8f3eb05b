package main

import "github.com/frahmantamala/permission-management/cmd"

func main() {
	cmd.Execute()
}
