package main

import "marketplace-chat/internal/app"

func main() {
	app.Run()
}
