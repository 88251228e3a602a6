package main

import "handshakewatch/cmd"

func main() {
	cmd.Execute()
}
