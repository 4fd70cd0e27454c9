package main

import "quillchat/cmd/chatctl/cmd"

func main() {
	cmd.Execute()
}
