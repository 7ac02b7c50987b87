package main

import "tstated/internal/ctl"

func main() {
	ctl.Execute()
}
