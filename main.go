package main

import (
	"github.com/atelierhq/assetgate/src/devstore"
	"github.com/atelierhq/assetgate/src/website"
)

func main() {
	website.WebsiteCommand.AddCommand(devstore.Command)
	website.WebsiteCommand.Execute()
}
