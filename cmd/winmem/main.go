package main

import "github.com/msuhanov/winmem-decompress/cmd/winmem/cmd"

func main() {
	cmd.Execute()
}
