package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/pitwall-io/pitwall/cmd/pw-edge-agent/app"
)

func main() {
	app.NewApp().Run()
}
