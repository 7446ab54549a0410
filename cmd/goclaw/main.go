// Command goclaw runs the cron scheduler CLI and its gateway daemon.
package main

import (
	"github.com/nextlevelbuilder/goclaw/cmd"
)

func main() {
	cmd.Execute()
}
