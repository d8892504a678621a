package main

import "github.com/oshokin/emby-beta-updater/cmd/emby-beta-updater/cmd"

func main() {
	cmd.Execute()
}
