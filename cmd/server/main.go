package main

import "github.com/chatapp/realtime-chat/internal/app"

func main() {
	app.Run()
}
