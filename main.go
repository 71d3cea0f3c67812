// Command clutchmetrics scores basketball play-by-play data for clutch value.
package main

import "github.com/pable/clutchmetrics/cmd"

func main() {
	cmd.Execute()
}
