package main

import "github.com/stoky/golemchat/internal/commands"

func main() {
	commands.Execute()
}
